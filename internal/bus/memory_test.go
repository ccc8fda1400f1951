package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemory_PublishSubscribe(t *testing.T) {
	m := NewMemory()
	pub, err := m.DeclarePublisher("topic/a", PublisherOptions{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "topic/a")
	if err != nil {
		t.Fatal(err)
	}

	if err := pub.Publish("hello"); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-ch:
		if s.Payload != "hello" {
			t.Errorf("expected payload %q, got %v", "hello", s.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sample")
	}
}

func TestMemory_ReplayHistory(t *testing.T) {
	m := NewMemory()
	pub, err := m.DeclarePublisher("topic/b", PublisherOptions{HistoryDepth: 2})
	if err != nil {
		t.Fatal(err)
	}

	for _, v := range []string{"one", "two", "three"} {
		if err := pub.Publish(v); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "topic/b")
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case s := <-ch:
			got = append(got, s.Payload.(string))
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d samples", i)
		}
	}

	if len(got) != 2 || got[0] != "two" || got[1] != "three" {
		t.Errorf("expected replay [two three], got %v", got)
	}
}

func TestMemory_UnsubscribeOnContextDone(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Subscribe(ctx, "topic/c")
	if err != nil {
		t.Fatal(err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestMemory_QueryRoundTrip(t *testing.T) {
	m := NewMemory()
	if err := m.RegisterQueryHandler("query/echo", func(ctx context.Context, req any) (any, error) {
		return req, nil
	}); err != nil {
		t.Fatal(err)
	}

	resp, err := m.Query(context.Background(), "query/echo", "ping")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ping" {
		t.Errorf("expected echo of %q, got %v", "ping", resp)
	}
}

func TestMemory_QueryTimeoutWithNoHandler(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Query(ctx, "query/nobody", "ping")
	if err == nil {
		t.Fatal("expected error for unregistered query topic")
	}
}

func TestMemory_LivelinessMonotonic(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	if err := m.DeclareLiveliness(ctx, "backend-a"); err != nil {
		t.Fatal(err)
	}
	if !m.IsAlive("backend-a") {
		t.Error("expected backend-a to be alive immediately after declaring")
	}

	cancel()
	// allow the liveliness goroutine to observe ctx.Done.
	deadline := time.After(time.Second)
	for m.IsAlive("backend-a") {
		select {
		case <-deadline:
			t.Fatal("backend-a never flipped to not-alive")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestMemory_HeartbeatRepublishesLastSample(t *testing.T) {
	m := NewMemory()
	pub, err := m.DeclarePublisher("topic/heartbeat", PublisherOptions{HeartbeatInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := m.Subscribe(ctx, "topic/heartbeat")
	if err != nil {
		t.Fatal(err)
	}

	if err := pub.Publish("steady"); err != nil {
		t.Fatal(err)
	}

	seen := 0
	deadline := time.After(time.Second)
	for seen < 2 {
		select {
		case s := <-ch:
			if s.Payload != "steady" {
				t.Fatalf("expected heartbeat to repeat last payload, got %v", s.Payload)
			}
			seen++
		case <-deadline:
			t.Fatal("heartbeat did not republish the last sample in time")
		}
	}
}
