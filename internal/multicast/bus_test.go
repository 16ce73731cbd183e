package multicast

import (
	"testing"
	"time"
)

func TestAllSubscribersReceiveAllMessages(t *testing.T) {
	b := New[int](16)
	defer b.Close()

	const nsubs = 3
	var subs []*Subscription[int]
	for i := 0; i < nsubs; i++ {
		s, err := b.Subscribe()
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		subs = append(subs, s)
	}

	for i := 0; i < 5; i++ {
		if err := b.Publish(i); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for _, s := range subs {
		for want := 0; want < 5; want++ {
			select {
			case got := <-s.C:
				if got != want {
					t.Errorf("got %d, want %d", got, want)
				}
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for message %d", want)
			}
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New[string](16)
	defer b.Close()

	s, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	s.Unsubscribe()

	// Give the worker goroutine a moment to process the unregister.
	time.Sleep(10 * time.Millisecond)

	if err := b.Publish("hello"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case v, ok := <-s.C:
		if ok {
			t.Fatalf("expected no further delivery after unsubscribe, got %v", v)
		}
	case <-time.After(50 * time.Millisecond):
		// no message delivered, as expected
	}
}

func TestPublishAfterCloseReturnsError(t *testing.T) {
	b := New[int](4)
	b.Close()
	// Allow the worker to actually exit.
	time.Sleep(10 * time.Millisecond)
	if err := b.Publish(1); err != ErrClosed {
		t.Fatalf("Publish after close = %v, want ErrClosed", err)
	}
	if _, err := b.Subscribe(); err != ErrClosed {
		t.Fatalf("Subscribe after close = %v, want ErrClosed", err)
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New[int](16)
	defer b.Close()

	slow, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	fast, err := b.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_ = slow // never drained, simulating a dead/slow subscriber

	for i := 0; i < 10; i++ {
		if err := b.Publish(i); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	select {
	case v := <-fast.C:
		if v != 0 {
			t.Errorf("fast subscriber got %d, want 0", v)
		}
	case <-time.After(time.Second):
		t.Fatal("fast subscriber did not receive despite slow sibling")
	}
}
