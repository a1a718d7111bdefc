package reqchannel

import (
	"context"
	"testing"
	"time"
)

func TestSendRecvRespond(t *testing.T) {
	ch := New[string, string]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env, ok := ch.Recv(context.Background())
		if !ok {
			t.Error("Recv() ok = false, want true")
			return
		}
		if env.Request != "hello" {
			t.Errorf("Recv() request = %q, want hello", env.Request)
		}
		env.Respond("world")
	}()

	resp, err := ch.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp != "world" {
		t.Fatalf("Send() response = %q, want world", resp)
	}
	<-done
}

func TestSendAfterCloseFailsWithEngineDown(t *testing.T) {
	ch := New[int, int]()
	ch.Close()

	_, err := ch.Send(context.Background(), 1)
	if err != ErrEngineDown {
		t.Fatalf("Send() after Close() error = %v, want ErrEngineDown", err)
	}
}

func TestDrainReturnsQueuedRequests(t *testing.T) {
	ch := New[int, int]()
	for i := 0; i < 3; i++ {
		go ch.Send(context.Background(), i)
	}
	// Give the producer goroutines a moment to enqueue.
	time.Sleep(20 * time.Millisecond)
	ch.Close()

	drained := ch.Drain()
	if len(drained) != 3 {
		t.Fatalf("Drain() returned %d envelopes, want 3", len(drained))
	}
	for _, env := range drained {
		env.Respond(-1) // Cancelled, in spirit
	}
}

func TestRecvUnblocksOnContextCancel(t *testing.T) {
	ch := New[int, int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := ch.Recv(ctx)
	if ok {
		t.Fatal("Recv() ok = true on an empty channel with an expired context, want false")
	}
}
