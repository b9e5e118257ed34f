package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("contacts.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindContactsUpdated, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindContactsUpdated {
			t.Errorf("got kind %q, want %q", evt.Kind, KindContactsUpdated)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindContactsUpdated})
	b.Publish(Event{Kind: KindMessageStored})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageStored {
			t.Errorf("got kind %q, want %q", evt.Kind, KindMessageStored)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the contacts event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestSingleSubscriberOrdering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 16)
	defer unsub()

	for i := 0; i < 10; i++ {
		b.Publish(Event{Kind: KindMessageStored, Payload: i})
	}

	for i := 0; i < 10; i++ {
		select {
		case evt := <-ch:
			if evt.Payload.(int) != i {
				t.Fatalf("event %d arrived out of order: got %v", i, evt.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("contacts.", 10)
	unsub()

	b.Publish(Event{Kind: KindContactsUpdated})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Event{Kind: "test.one"})
	// This should be dropped (non-blocking).
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}
