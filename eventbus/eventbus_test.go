package eventbus

import (
	"testing"
	"time"

	"github.com/codestream-dev/codestream/model"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("sess-1")
	defer bus.Unsubscribe("sess-1", ch)

	bus.Publish("sess-1", &model.Update{Type: model.UpdateStatus, Status: model.StatusStreaming})

	select {
	case u := <-ch:
		if u.Status != model.StatusStreaming {
			t.Fatalf("unexpected update: %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("sess-1")
	defer bus.Unsubscribe("sess-1", ch)

	bus.Publish("sess-2", &model.Update{Type: model.UpdateLog, Entry: "other"})

	select {
	case u := <-ch:
		t.Fatalf("received update for foreign topic: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("sess-1")
	bus.Unsubscribe("sess-1", ch)

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewInMemoryBus()
	ch := bus.Subscribe("sess-1")
	defer bus.Unsubscribe("sess-1", ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish("sess-1", &model.Update{Type: model.UpdateLog, Entry: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
