package wa

import (
	"testing"
	"time"

	"github.com/wazapp/wazappd/internal/bus"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
)

func testHandler() (*EventHandler, *bus.Bus) {
	b := bus.New()
	h := NewEventHandler(b, func() string { return ownJID }, zap.NewNop())
	return h, b
}

func recv(t *testing.T, ch <-chan bus.Event) bus.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for bus event")
		return bus.Event{}
	}
}

func TestHandleMessagePublishes(t *testing.T) {
	h, b := testHandler()
	ch, unsub := b.Subscribe("wa.message", 4)
	defer unsub()

	chat := types.NewJID("491711234567", types.DefaultUserServer)
	h.Handle(&events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: chat, Sender: chat},
			ID:            "M1",
			Timestamp:     time.Unix(1371000000, 0),
		},
		Message: &waE2E.Message{Conversation: proto.String("hi")},
	})

	evt := recv(t, ch)
	m, ok := evt.Payload.(*InboundMessage)
	if !ok {
		t.Fatalf("payload type %T", evt.Payload)
	}
	if m.MessageID != "M1" || m.Body != "hi" {
		t.Errorf("parsed = %+v", m)
	}
}

func TestHandleReceipt(t *testing.T) {
	h, b := testHandler()
	ch, unsub := b.Subscribe("wa.receipt", 4)
	defer unsub()

	h.Handle(&events.Receipt{
		MessageIDs: []string{"M1", "M2"},
		Type:       types.ReceiptTypeRead,
	})

	evt := recv(t, ch)
	r := evt.Payload.(*ReceiptEvent)
	if len(r.MessageIDs) != 2 {
		t.Errorf("receipt = %+v, want 2 ids", r)
	}

	// Empty receipts are dropped.
	h.Handle(&events.Receipt{Type: types.ReceiptTypeDelivered})
	select {
	case evt := <-ch:
		t.Errorf("unexpected event for empty receipt: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandlePresence(t *testing.T) {
	h, b := testHandler()
	ch, unsub := b.Subscribe("wa.presence", 4)
	defer unsub()

	from := types.NewJID("491711234567", types.DefaultUserServer)
	lastSeen := time.Unix(1371000000, 0)
	h.Handle(&events.Presence{From: from, Unavailable: true, LastSeen: lastSeen})

	evt := recv(t, ch)
	p := evt.Payload.(*PresenceEvent)
	if p.Available {
		t.Error("Unavailable event parsed as available")
	}
	if p.Chat != "491711234567@s.whatsapp.net" {
		t.Errorf("chat = %q", p.Chat)
	}
	if p.LastSeen != lastSeen.UnixMilli() {
		t.Errorf("lastSeen = %d, want %d", p.LastSeen, lastSeen.UnixMilli())
	}
}

func TestHandlePresenceNoLastSeen(t *testing.T) {
	h, b := testHandler()
	ch, unsub := b.Subscribe("wa.presence", 4)
	defer unsub()

	from := types.NewJID("491711234567", types.DefaultUserServer)
	h.Handle(&events.Presence{From: from})

	p := recv(t, ch).Payload.(*PresenceEvent)
	if !p.Available || p.LastSeen != 0 {
		t.Errorf("presence = %+v, want available with zero lastSeen", p)
	}
}

func TestHandlePicture(t *testing.T) {
	h, b := testHandler()
	ch, unsub := b.Subscribe("wa.picture", 4)
	defer unsub()

	jid := types.NewJID("491711234567", types.DefaultUserServer)
	h.Handle(&events.Picture{JID: jid, PictureID: "pic9"})

	p := recv(t, ch).Payload.(*PictureEvent)
	if p.PictureID != "pic9" || p.Removed {
		t.Errorf("picture = %+v", p)
	}
}
