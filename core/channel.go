package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrChannelClosed is returned by Push and Pop once the channel has been
	// closed and drained.
	ErrChannelClosed = errors.New("event channel closed")
	// ErrPushTimeout is returned when the consumer failed to make room within
	// the push bound. A consumer stalled that long is treated as gone.
	ErrPushTimeout = errors.New("event channel push timed out")
	// ErrStreamTruncated reports an event stream that closed without its
	// terminal stream_complete event, which only happens when the producing
	// turn was abandoned.
	ErrStreamTruncated = errors.New("event stream ended without stream_complete")
)

// DefaultPushTimeout bounds how long a producer waits for channel space.
const DefaultPushTimeout = 30 * time.Second

// ChannelOptions configures a Channel.
type ChannelOptions struct {
	// BufferSize sets the queue capacity.
	BufferSize int
	// PushTimeout bounds how long Push waits for space.
	PushTimeout time.Duration
}

// Channel is the bounded FIFO queue carrying one turn's events from the
// producer to its single consumer.
//
// Contract:
//   - Push assigns a strictly monotonic sequence number and enqueues; it
//     waits up to PushTimeout for space rather than stalling the producer
//     indefinitely.
//   - Pop suspends until an event is available or, once the channel is closed
//     and drained, returns ErrChannelClosed.
//   - Close is idempotent and must only be called from the producer side,
//     after the terminal event has been pushed.
type Channel struct {
	ch          chan Event
	done        chan struct{}
	closeOnce   sync.Once
	seq         atomic.Uint64
	pushTimeout time.Duration
}

// NewChannel constructs a Channel with optional overrides.
func NewChannel(optFns ...func(o *ChannelOptions)) *Channel {
	opts := ChannelOptions{
		BufferSize:  256,
		PushTimeout: DefaultPushTimeout,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Channel{
		ch:          make(chan Event, opts.BufferSize),
		done:        make(chan struct{}),
		pushTimeout: opts.PushTimeout,
	}
}

// Push enqueues ev after stamping the next sequence number.
func (c *Channel) Push(ctx context.Context, ev Event) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}

	ev.Seq = c.seq.Add(1)

	timer := time.NewTimer(c.pushTimeout)
	defer timer.Stop()

	select {
	case c.ch <- ev:
		return nil
	case <-c.done:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPushTimeout
	}
}

// Pop returns the next event in FIFO order, suspending until one is available.
// Events buffered before Close are still delivered; afterwards Pop reports
// ErrChannelClosed.
func (c *Channel) Pop(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-c.ch:
		if !ok {
			return Event{}, ErrChannelClosed
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Events exposes the queue for range-style draining. The channel is closed
// once the producer has pushed the terminal event.
func (c *Channel) Events() <-chan Event { return c.ch }

// Close marks the channel closed. Idempotent.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		close(c.ch)
	})
}
