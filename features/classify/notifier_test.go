package classify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"visionbridge/features/classify"
)

func TestNotifier_NotifyWakesRegistered(t *testing.T) {
	n := classify.NewNotifier()
	ch := n.Register("id-1")
	defer n.Unregister("id-1", ch)

	n.Notify("id-1")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestNotifier_NotifyOtherIDIsSilent(t *testing.T) {
	n := classify.NewNotifier()
	ch := n.Register("id-1")
	defer n.Unregister("id-1", ch)

	n.Notify("id-2")

	select {
	case <-ch:
		t.Fatal("waiter woken for an unrelated id")
	default:
	}
}

func TestNotifier_DoubleNotifyDoesNotBlock(t *testing.T) {
	n := classify.NewNotifier()
	ch := n.Register("id-1")
	defer n.Unregister("id-1", ch)

	done := make(chan struct{})
	go func() {
		n.Notify("id-1")
		n.Notify("id-1")
		n.Notify("id-1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full channel")
	}
}

func TestNotifier_MultipleWaitersSameID(t *testing.T) {
	n := classify.NewNotifier()
	a := n.Register("id-1")
	b := n.Register("id-1")
	defer n.Unregister("id-1", a)
	defer n.Unregister("id-1", b)

	n.Notify("id-1")

	for _, ch := range []chan struct{}{a, b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("one of the waiters was not woken")
		}
	}
}

func TestNotifier_UnregisteredNotWoken(t *testing.T) {
	n := classify.NewNotifier()
	ch := n.Register("id-1")
	n.Unregister("id-1", ch)

	n.Notify("id-1")

	select {
	case <-ch:
		t.Fatal("unregistered waiter received a signal")
	default:
	}

	assert.NotPanics(t, func() { n.Unregister("id-1", ch) })
}
