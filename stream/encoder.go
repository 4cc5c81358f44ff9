// Package stream serializes a turn's events as server-sent event records
// over a long-lived response, one framed record per event, flushed
// immediately: the value proposition is liveness, so nothing is coalesced.
package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sse"

	"github.com/hupe1980/salesmesh/core"
)

// ErrTruncated reports an event stream that ended without stream_complete.
// It aliases core.ErrStreamTruncated so callers can match either sentinel.
var ErrTruncated = core.ErrStreamTruncated

// Encoder frames events onto an append-only output stream.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEncoder wraps w. When w also implements http.Flusher every record is
// flushed as soon as it is written.
func NewEncoder(w io.Writer) *Encoder {
	e := &Encoder{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Stream drains events in order, writing each as a labeled record, and
// returns once stream_complete has been written. It never writes after the
// terminal record. A cancelled context (client disconnect) stops the drain
// without writing further records.
func (e *Encoder) Stream(ctx context.Context, events <-chan core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrTruncated
			}
			if err := e.Encode(ev); err != nil {
				return err
			}
			if ev.IsTerminal() {
				return nil
			}
		}
	}
}

// Encode writes one event as a labeled record and flushes.
func (e *Encoder) Encode(ev core.Event) error {
	record := sse.Event{
		Event: string(ev.Type),
		Data:  ev.Payload(),
	}
	if err := sse.Encode(e.w, record); err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
