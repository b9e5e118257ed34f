package contacts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wazapp/wazappd/internal/bus"
	"github.com/wazapp/wazappd/internal/store"
	"go.uber.org/zap"
)

// lookupTimeout bounds external directory calls so a stalled server turns
// into an empty result instead of a hung import.
const lookupTimeout = 30 * time.Second

// Lookup resolves raw phone numbers against the external WhatsApp
// directory. The result maps each registered requested phone to its
// canonical form; absence from the map means "not registered", not an error.
type Lookup interface {
	RegisteredUsers(ctx context.Context, phones []string) (map[string]string, error)
}

// Status is the volatile presence snapshot of one contact. Available is nil
// while the state is still Unknown.
type Status struct {
	Available *bool
	LastSeen  int64 // unix millis, 0 = never observed this run
}

// EditRequest asks the UI layer to resolve a contact whose phone number the
// directory could not map to a registered identity.
type EditRequest struct {
	Phone string
	Name  string
}

// Directory is the identity and presence facade over the store. It owns
// conversation-id normalization, the volatile presence cache, and the
// external directory boundary; all persistence goes through the Store.
type Directory struct {
	store    *store.Store
	bus      *bus.Bus
	presence *PresenceTracker
	lookup   Lookup

	pictureDir string
	logger     *zap.Logger
}

// New creates a directory. lookup may be nil when the protocol connection
// is not up yet; lookups then resolve nothing.
func New(s *store.Store, b *bus.Bus, lookup Lookup, pictureDir string, logger *zap.Logger) *Directory {
	return &Directory{
		store:      s,
		bus:        b,
		presence:   NewPresenceTracker(),
		lookup:     lookup,
		pictureDir: pictureDir,
		logger:     logger,
	}
}

// SetLookup swaps the external directory collaborator, typically once the
// protocol adapter is connected.
func (d *Directory) SetLookup(l Lookup) {
	d.lookup = l
}

// ConversationIDs returns the ids of all stored contacts.
func (d *Directory) ConversationIDs(ctx context.Context) ([]string, error) {
	all, err := d.store.All(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for _, c := range all {
		ids = append(ids, c.ConversationID)
	}
	return ids, nil
}

// Name returns the display name for a conversation, falling back to the
// conversation id itself so callers always have a renderable label.
func (d *Directory) Name(ctx context.Context, conversationID string) string {
	c, err := d.store.Get(ctx, conversationID)
	if err != nil {
		d.logger.Warn("name lookup failed", zap.String("conversation_id", conversationID), zap.Error(err))
		return conversationID
	}
	if c == nil {
		return conversationID
	}
	return c.Name
}

// SetName stores the display name for a conversation, creating the contact
// when unseen.
func (d *Directory) SetName(ctx context.Context, conversationID, name string) error {
	_, err := d.store.Upsert(ctx, conversationID, store.ContactPatch{Name: &name})
	return err
}

// PicturePath returns the cached avatar path for a conversation, or empty
// string when no picture is known (callers use the default avatar).
func (d *Directory) PicturePath(ctx context.Context, conversationID string) string {
	c, err := d.store.Get(ctx, conversationID)
	if err != nil || c == nil || c.PictureID == "" {
		return ""
	}
	return filepath.Join(d.pictureDir, c.PictureID+".jpeg")
}

// SetPictureID stores the avatar identifier for a conversation.
func (d *Directory) SetPictureID(ctx context.Context, conversationID, pictureID string) error {
	_, err := d.store.Upsert(ctx, conversationID, store.ContactPatch{PictureID: &pictureID})
	return err
}

// Remove deletes a contact and its history.
func (d *Directory) Remove(ctx context.Context, conversationID string) error {
	return d.store.Delete(ctx, conversationID)
}

// Status reads the volatile presence cache. Contacts never seen this run
// yield an unknown availability and a zero last-seen, including every
// contact right after a restart.
func (d *Directory) Status(conversationID string) Status {
	state, lastSeen := d.presence.State(conversationID)
	var available *bool
	switch state {
	case StateAvailable:
		v := true
		available = &v
	case StateUnavailable:
		v := false
		available = &v
	}
	return Status{Available: available, LastSeen: lastSeen}
}

// ContactStatusChanged applies a presence event. Either field may be nil
// independently. A presence event creates the contact row when unseen;
// availability stays in memory only, while last-seen is also persisted as
// the contact's last-known-online time. A status-changed notification fires
// regardless of which fields were present.
func (d *Directory) ContactStatusChanged(ctx context.Context, conversationID string, available *bool, lastSeen *int64) error {
	if available != nil {
		d.presence.SetAvailable(conversationID, *available)
	}
	if lastSeen != nil {
		d.presence.SetLastSeen(conversationID, *lastSeen)
	}
	// Lazy create even for availability-only events; the patch carries at
	// most last-seen, never availability.
	if _, err := d.store.Upsert(ctx, conversationID, store.ContactPatch{LastSeen: lastSeen}); err != nil {
		return fmt.Errorf("persist presence for %q: %w", conversationID, err)
	}
	d.bus.Publish(bus.Event{
		Kind:      bus.KindContactStatusChanged,
		Timestamp: time.Now(),
		Payload:   conversationID,
	})
	return nil
}

// WAUsers resolves phone numbers against the external directory. Transport
// failures degrade to an empty result plus a lookup-failed advisory on the
// bus; they never propagate.
func (d *Directory) WAUsers(ctx context.Context, phones []string) map[string]string {
	if d.lookup == nil || len(phones) == 0 {
		return map[string]string{}
	}

	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	users, err := d.lookup.RegisteredUsers(ctx, phones)
	if err != nil {
		d.logger.Warn("directory lookup failed", zap.Int("phones", len(phones)), zap.Error(err))
		d.bus.Publish(bus.Event{
			Kind:      bus.KindContactLookupFailed,
			Timestamp: time.Now(),
			Payload:   err.Error(),
		})
		return map[string]string{}
	}
	if users == nil {
		users = map[string]string{}
	}
	return users
}

// UpdateContact resolves a user-entered phone or group token and stores the
// given name under the canonical conversation id. Numbers the directory does
// not know trigger a contacts.edit_requested event instead of a save, so the
// UI can re-prompt.
func (d *Directory) UpdateContact(ctx context.Context, phoneOrGroup, name string) error {
	phoneOrGroup, _, _ = strings.Cut(phoneOrGroup, "@")
	if isGroupToken(phoneOrGroup) {
		phoneOrGroup = strings.TrimPrefix(strings.TrimSpace(phoneOrGroup), "+")
	} else {
		resolved := d.WAUsers(ctx, []string{phoneOrGroup})
		if len(resolved) == 0 {
			d.logger.Info("phone not registered", zap.String("phone", phoneOrGroup))
			d.bus.Publish(bus.Event{
				Kind:      bus.KindContactEditRequested,
				Timestamp: time.Now(),
				Payload:   EditRequest{Phone: phoneOrGroup, Name: name},
			})
			return nil
		}
		for _, phone := range resolved {
			phoneOrGroup = phone
			break
		}
	}
	return d.SetName(ctx, PhoneToConversationID(phoneOrGroup), name)
}

// ImportContacts bulk-imports an external phone-to-name map (e.g. an
// already-fetched address book). Contact-list notifications are suppressed
// for the duration and fired once at the end. Returns how many numbers were
// registered and the batch size.
func (d *Directory) ImportContacts(ctx context.Context, byPhone map[string]string) (found, total int, err error) {
	phones := make([]string, 0, len(byPhone))
	for phone := range byPhone {
		phones = append(phones, phone)
	}

	waUsers := d.WAUsers(ctx, phones)

	d.store.SuspendContactNotifications()
	defer d.store.ResumeContactNotifications()

	for requested, canonical := range waUsers {
		name := byPhone[requested]
		if name == "" {
			continue
		}
		if err := d.SetName(ctx, PhoneToConversationID(canonical), name); err != nil {
			return len(waUsers), len(byPhone), fmt.Errorf("import %q: %w", requested, err)
		}
	}
	d.logger.Info("contact import finished",
		zap.Int("registered", len(waUsers)),
		zap.Int("total", len(byPhone)))
	return len(waUsers), len(byPhone), nil
}
