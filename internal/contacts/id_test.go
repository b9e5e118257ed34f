package contacts

import "testing"

func TestPhoneToConversationID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already a jid", "491711234567@s.whatsapp.net", "491711234567@s.whatsapp.net"},
		{"group jid passthrough", "123456789-1234567890@g.us", "123456789-1234567890@g.us"},
		{"plain number", "491711234567", "491711234567@s.whatsapp.net"},
		{"formatted number", "+49 171 123-4567", "491711234567@s.whatsapp.net"},
		{"group token", "123456789-1234567890", "123456789-1234567890@g.us"},
		{"us vanity style", "1-800-555-0101", "18005550101@s.whatsapp.net"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhoneToConversationID(tt.input); got != tt.want {
				t.Errorf("PhoneToConversationID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhoneToConversationIDIdempotent(t *testing.T) {
	inputs := []string{
		"491711234567",
		"+49 (171) 123 45 67",
		"123456789-1234567890",
		"1-800-555-0101",
		"alreadydone@s.whatsapp.net",
		"",
	}
	for _, in := range inputs {
		once := PhoneToConversationID(in)
		twice := PhoneToConversationID(once)
		if once != twice {
			t.Errorf("not idempotent for %q: f(x)=%q, f(f(x))=%q", in, once, twice)
		}
	}
}

func TestIsGroup(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"123456789-1234567890@g.us", true},
		{"123456789-1234567890", true},
		{"1-800-555-0101", false},      // two hyphens
		{"1-2345678901", true},         // one hyphen, 10 digits after
		{"12-345", false},              // too short for the offset rule
		{"491711234567@s.whatsapp.net", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsGroup(tt.id); got != tt.want {
			t.Errorf("IsGroup(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestPhone(t *testing.T) {
	if got := Phone("4917@s.whatsapp.net"); got != "4917" {
		t.Errorf("Phone() = %q, want 4917", got)
	}
	if got := Phone("nothing-here"); got != "nothing-here" {
		t.Errorf("Phone() = %q, want unchanged input", got)
	}
}
