package core

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/salesmesh/logging"
)

func TestChannelListener_EnqueuesInOrder(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel()
	l := NewChannelListener(ctx, ch, nil)

	l.OnFunctionCall("get_sales_docs", "call-1", map[string]any{"query": "MEDDIC"})
	l.OnIntermediate("searching")
	l.OnFunctionResult("get_sales_docs", "call-1", "docs")
	l.OnContent("Here is")

	wantTypes := []EventType{EventFunctionCall, EventIntermediate, EventFunctionResult, EventContent}
	for i, want := range wantTypes {
		ev, err := ch.Pop(ctx)
		if err != nil {
			t.Fatalf("pop %d failed: %v", i, err)
		}
		if ev.Type != want {
			t.Errorf("event %d: got %s, want %s", i, ev.Type, want)
		}
	}
}

func TestChannelListener_PairsCallAndResultByID(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel()
	l := NewChannelListener(ctx, ch, logging.NoOpLogger{})

	// Two outstanding calls interleave; pairing is by call id, not position.
	l.OnFunctionCall("get_customer_docs", "call-a", nil)
	l.OnFunctionCall("get_user_docs", "call-b", nil)
	l.OnFunctionResult("get_user_docs", "call-b", "user docs")
	l.OnFunctionResult("get_customer_docs", "call-a", "account docs")

	byID := map[string][]EventType{}
	for i := 0; i < 4; i++ {
		ev, err := ch.Pop(ctx)
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		byID[ev.CallID] = append(byID[ev.CallID], ev.Type)
	}
	for id, seq := range byID {
		if len(seq) != 2 || seq[0] != EventFunctionCall || seq[1] != EventFunctionResult {
			t.Errorf("call %s: got sequence %v", id, seq)
		}
	}
}

func TestChannelListener_FailsInsteadOfStalling(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(func(o *ChannelOptions) {
		o.BufferSize = 1
		o.PushTimeout = 5 * time.Millisecond
	})
	l := NewChannelListener(ctx, ch, nil)

	l.OnContent("fills buffer")
	if l.Failed() {
		t.Fatal("listener must not be failed while pushes succeed")
	}

	done := make(chan struct{})
	go func() {
		l.OnContent("overflows")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener stalled on a full channel")
	}
	if !l.Failed() {
		t.Fatal("push timeout must mark the listener failed")
	}

	// Once failed, later notifications are suppressed so the stream never
	// resumes with a gap.
	l.OnContent("after failure")
	ev, err := ch.Pop(ctx)
	if err != nil {
		t.Fatalf("pop failed: %v", err)
	}
	if ev.Content != "fills buffer" {
		t.Fatalf("unexpected buffered event: %+v", ev)
	}
	select {
	case ev := <-ch.Events():
		t.Fatalf("no events may follow a failed push, got %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}
