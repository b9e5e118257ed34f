package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wazapp/wazappd/internal/bus"
	"github.com/wazapp/wazappd/internal/store"
	"go.uber.org/zap"
)

const ownJID = "4900000000@s.whatsapp.net"

type fakeSender struct {
	sent   []string
	err    error
	nextID string
}

func (f *fakeSender) SendText(_ context.Context, conversationID, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, text)
	return f.nextID, nil
}

func testSender(t *testing.T, f *fakeSender) (*Sender, *store.Store, *bus.Bus) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New()
	s := store.New(db, b)
	return NewSender(s, f, b, func() string { return ownJID }, zap.NewNop()), s, b
}

func TestQueueAndSend(t *testing.T) {
	f := &fakeSender{nextID: "SRV1"}
	sender, s, b := testSender(t, f)
	ctx := context.Background()

	ch, unsub := b.Subscribe("message.send_ack", 4)
	defer unsub()

	clientID, err := sender.Queue(ctx, "491@s.whatsapp.net", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if clientID == "" {
		t.Fatal("empty client id")
	}

	sender.ProcessPending(ctx)

	if len(f.sent) != 1 || f.sent[0] != "hello" {
		t.Errorf("sent = %v, want [hello]", f.sent)
	}

	select {
	case evt := <-ch:
		ack := evt.Payload.(map[string]string)
		if ack["server_msg_id"] != "SRV1" || ack["client_msg_id"] != clientID {
			t.Errorf("ack = %v", ack)
		}
	case <-time.After(time.Second):
		t.Fatal("missing send_ack")
	}

	// Own copy stored under the server id with sender == receiver.
	msgs, err := s.Messages(ctx, "491@s.whatsapp.net")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.MessageID != "SRV1" || m.Sender != ownJID || m.Receiver != ownJID || !m.IsSent {
		t.Errorf("own message = %+v", m)
	}

	pending, _ := s.PendingOutbox(ctx)
	if len(pending) != 0 {
		t.Errorf("%d entries still pending", len(pending))
	}
}

func TestEchoAfterSendKeepsBoth(t *testing.T) {
	f := &fakeSender{nextID: "SRV2"}
	sender, s, _ := testSender(t, f)
	ctx := context.Background()

	if _, err := sender.Queue(ctx, "491@s.whatsapp.net", "ping"); err != nil {
		t.Fatal(err)
	}
	sender.ProcessPending(ctx)

	// The protocol reflects our own message back under the same server id.
	effectiveID, err := s.AddMessage(ctx, store.AddMessageParams{
		ConversationID: "491@s.whatsapp.net",
		MessageID:      "SRV2",
		Sender:         ownJID,
		Receiver:       ownJID,
		Body:           "ping",
		Timestamp:      time.Now().UnixMilli(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if effectiveID != "SRV2"+store.EchoMarker {
		t.Errorf("echo stored as %q, want SRV2%s", effectiveID, store.EchoMarker)
	}

	msgs, _ := s.Messages(ctx, "491@s.whatsapp.net")
	if len(msgs) != 2 {
		t.Errorf("got %d messages, want send confirmation plus echo", len(msgs))
	}
}

func TestSendFailureMarksFailed(t *testing.T) {
	f := &fakeSender{err: errors.New("not connected")}
	sender, s, b := testSender(t, f)
	ctx := context.Background()

	ch, unsub := b.Subscribe("message.send_failed", 4)
	defer unsub()

	if _, err := sender.Queue(ctx, "491@s.whatsapp.net", "doomed"); err != nil {
		t.Fatal(err)
	}
	sender.ProcessPending(ctx)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("missing send_failed event")
	}

	pending, _ := s.PendingOutbox(ctx)
	if len(pending) != 0 {
		t.Errorf("failed entry still queued: %v", pending)
	}

	count, _ := s.MessageCount(ctx)
	if count != 0 {
		t.Errorf("failed send stored %d messages, want 0", count)
	}
}
