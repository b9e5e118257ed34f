package contacts

import "strings"

const (
	userIDSuffix  = "@s.whatsapp.net"
	groupIDSuffix = "@g.us"
)

// PhoneToConversationID normalizes a raw phone number or group token into a
// canonical conversation id. Inputs that already carry an identity separator
// pass through unchanged, so the function is idempotent.
func PhoneToConversationID(phoneOrGroup string) string {
	if strings.Contains(phoneOrGroup, "@") {
		return phoneOrGroup
	}
	if isGroupToken(phoneOrGroup) {
		return phoneOrGroup + groupIDSuffix
	}
	return stripNonDigits(phoneOrGroup) + userIDSuffix
}

// Phone returns the numeric part of a conversation id.
func Phone(conversationID string) string {
	id, _, _ := strings.Cut(conversationID, "@")
	return id
}

// IsGroup reports whether a conversation id belongs to a group chat.
func IsGroup(conversationID string) bool {
	return isGroupToken(Phone(conversationID))
}

// isGroupToken applies the protocol's group id encoding: exactly one hyphen
// separating the creator number from a 10-digit group id. The offset check
// must stay exact — ordinary phone numbers can carry formatting hyphens
// elsewhere ("1-800-555-0101" is not a group).
func isGroupToken(phone string) bool {
	if strings.Count(phone, "-") != 1 {
		return false
	}
	if len(phone) < 11 {
		return false
	}
	return phone[len(phone)-11] == '-'
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
