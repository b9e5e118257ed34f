package wa

import (
	"context"
	"fmt"

	"github.com/wazapp/wazappd/internal/bus"
	"github.com/wazapp/wazappd/internal/contacts"
	"github.com/wazapp/wazappd/internal/session"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"
)

// Adapter doubles as the external directory lookup.
var _ contacts.Lookup = (*Adapter)(nil)

// Adapter wraps the whatsmeow client and manages the WhatsApp connection.
// The rest of the daemon never touches the wire protocol directly.
type Adapter struct {
	client    *whatsmeow.Client
	container *sqlstore.Container
	bus       *bus.Bus
	logger    *zap.Logger
	session   string
}

// NewAdapter creates a new WhatsApp adapter for the given session.
func NewAdapter(ctx context.Context, sessionName string, b *bus.Bus, logger *zap.Logger) (*Adapter, error) {
	// Set device name shown on the phone's linked devices list.
	wastore.SetOSInfo("Wazapp", [3]uint32{0, 1, 0})

	dbPath := session.ProtocolDBPath(sessionName)

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", dbPath),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device store: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	return &Adapter{
		client:    client,
		container: container,
		bus:       b,
		logger:    logger,
		session:   sessionName,
	}, nil
}

// Client returns the underlying whatsmeow client.
func (a *Adapter) Client() *whatsmeow.Client {
	return a.client
}

// IsLoggedIn returns whether the adapter has valid credentials.
func (a *Adapter) IsLoggedIn() bool {
	return a.client.Store.ID != nil
}

// Connect initiates the WhatsApp connection.
func (a *Adapter) Connect() error {
	a.logger.Info("connecting to WhatsApp")
	return a.client.Connect()
}

// Disconnect terminates the WhatsApp connection.
func (a *Adapter) Disconnect() {
	a.logger.Info("disconnecting from WhatsApp")
	a.client.Disconnect()
}

// Logout invalidates the session and removes credentials.
func (a *Adapter) Logout(ctx context.Context) error {
	return a.client.Logout(ctx)
}

// RegisterEventHandler adds a handler for whatsmeow events.
func (a *Adapter) RegisterEventHandler(handler whatsmeow.EventHandler) {
	a.client.AddEventHandler(handler)
}

// SendText sends a text message to the given conversation id. Returns the
// server message id for receipt correlation.
func (a *Adapter) SendText(ctx context.Context, conversationID string, text string) (string, error) {
	to, err := types.ParseJID(conversationID)
	if err != nil {
		return "", fmt.Errorf("parse JID: %w", err)
	}
	resp, err := a.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return resp.ID, nil
}

// OwnJID returns the canonical own identity, or empty string before pairing.
func (a *Adapter) OwnJID() string {
	if a.client.Store.ID == nil {
		return ""
	}
	return a.client.Store.ID.ToNonAD().String()
}

// SubscribePresence asks the server for presence updates of one contact.
func (a *Adapter) SubscribePresence(ctx context.Context, conversationID string) error {
	jid, err := types.ParseJID(conversationID)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	return a.client.SubscribePresence(ctx, jid)
}

// RegisteredUsers resolves phone numbers via the server's contact check.
// It implements contacts.Lookup: the result maps each registered requested
// phone to its canonical numeric form.
func (a *Adapter) RegisteredUsers(ctx context.Context, phones []string) (map[string]string, error) {
	resps, err := a.client.IsOnWhatsApp(ctx, phones)
	if err != nil {
		return nil, fmt.Errorf("contact check: %w", err)
	}
	users := make(map[string]string)
	for _, r := range resps {
		if r.IsIn {
			users[r.Query] = r.JID.User
		}
	}
	return users, nil
}

// GetQRChannel returns the QR channel for pairing. Must be called before Connect.
func (a *Adapter) GetQRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error) {
	if a.IsLoggedIn() {
		return nil, fmt.Errorf("already logged in")
	}
	ch, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("get QR channel: %w", err)
	}
	return ch, nil
}
