package core

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/salesmesh/logging"
)

// ActivityListener receives the agent capability's per-step notifications and
// is the only coupling between the capability and the event stream.
//
// Delivery order is part of the contract: implementations observe
// notifications exactly in the order the capability produces them, and the
// capability must invoke the listener synchronously from a single goroutine.
// A reimplementation that introduces concurrency on the producing side must
// add its own sequencing before calling in.
type ActivityListener interface {
	// OnFunctionCall reports a function about to run. args is the decoded
	// argument mapping; malformed payloads arrive as an empty map.
	OnFunctionCall(functionName, callID string, args map[string]any)

	// OnFunctionResult reports a finished function call, paired with the
	// preceding OnFunctionCall by callID. Failures inside the function are
	// rendered into result text rather than aborting the turn.
	OnFunctionResult(functionName, callID, result string)

	// OnContent reports a chunk of the final answer.
	OnContent(chunk string)

	// OnIntermediate reports a free-form progress notice.
	OnIntermediate(note string)
}

// ChannelListener adapts activity notifications into typed events on a
// Channel. Every notification enqueues exactly one event. Enqueueing is
// bounded-wait (the channel's push timeout); the first failure marks the
// listener failed and suppresses all further enqueueing, so the capability is
// never stalled and the stream is never resumed with a gap. Failed() lets the
// turn driver observe the breakage and abandon rather than commit a turn the
// consumer did not fully see.
type ChannelListener struct {
	ctx    context.Context
	ch     *Channel
	logger logging.Logger
	failed atomic.Bool
}

// NewChannelListener binds a listener to a turn's channel.
func NewChannelListener(ctx context.Context, ch *Channel, logger logging.Logger) *ChannelListener {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ChannelListener{ctx: ctx, ch: ch, logger: logger}
}

// OnFunctionCall implements ActivityListener.
func (l *ChannelListener) OnFunctionCall(functionName, callID string, args map[string]any) {
	l.push(NewFunctionCallEvent(functionName, callID, args))
}

// OnFunctionResult implements ActivityListener.
func (l *ChannelListener) OnFunctionResult(functionName, callID, result string) {
	l.push(NewFunctionResultEvent(functionName, callID, result))
}

// OnContent implements ActivityListener.
func (l *ChannelListener) OnContent(chunk string) {
	l.push(NewContentEvent(chunk))
}

// OnIntermediate implements ActivityListener.
func (l *ChannelListener) OnIntermediate(note string) {
	l.push(NewIntermediateEvent(note))
}

// Failed reports whether an enqueue failed, leaving the event stream broken.
func (l *ChannelListener) Failed() bool { return l.failed.Load() }

func (l *ChannelListener) push(ev Event) {
	if l.failed.Load() {
		return
	}
	if err := l.ch.Push(l.ctx, ev); err != nil {
		l.failed.Store(true)
		l.logger.Warn("listener.stream_broken", "event_type", string(ev.Type), "error", err.Error())
	}
}
