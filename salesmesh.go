// Package salesmesh provides a high-level façade over the turn runner and its
// services (sessions, retrieval functions & logging) enabling rapid
// construction of a conversational sales assistant. Most applications interact
// with this package by:
//  1. Creating a SalesMesh via New() with a capability (OpenAI, Anthropic or custom)
//  2. Asking questions asynchronously (Ask) or synchronously (AskSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger.
package salesmesh

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/logging"
	"github.com/hupe1980/salesmesh/runner"
	"github.com/hupe1980/salesmesh/session"
)

// Options configures the SalesMesh instance.
type Options struct {
	// Registry resolves thread identifiers to sessions (defaults to an
	// in-memory implementation if not provided).
	Registry session.Registry

	// EventBufferSize sets the channel buffer size for event delivery.
	// Larger buffers reduce blocking but increase memory usage.
	EventBufferSize int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// SalesMesh is the high-level façade aggregating the turn runner and services.
type SalesMesh struct {
	runner *runner.Runner
}

// New creates a new SalesMesh instance with optional overrides. The capability
// answers questions; functions declares what it may call while doing so.
func New(capability core.Capability, functions []core.FunctionDecl, optFns ...func(o *Options)) *SalesMesh {
	opts := Options{
		Registry:        session.NewInMemoryRegistry(),
		EventBufferSize: 256,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(capability, opts.Registry, functions, func(o *runner.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.Logger = opts.Logger
	})

	return &SalesMesh{runner: r}
}

// Runner exposes the underlying turn runner, mainly for serving over HTTP.
func (m *SalesMesh) Runner() *runner.Runner { return m.runner }

// Ask starts an asynchronous turn returning the resolved thread identifier and
// the ordered event stream.
func (m *SalesMesh) Ask(ctx context.Context, req runner.TurnRequest) (string, <-chan core.Event, error) {
	return m.runner.RunTurn(ctx, req)
}

// AskSync is a synchronous helper that drains the event stream and returns the
// assembled answer. A failed turn surfaces its error event as an error; an
// abandoned turn surfaces core.ErrStreamTruncated.
func (m *SalesMesh) AskSync(ctx context.Context, req runner.TurnRequest) (string, string, error) {
	threadID, events, err := m.runner.RunTurn(ctx, req)
	if err != nil {
		return threadID, "", err
	}

	answer, err := drainAnswer(ctx, events)
	return threadID, answer, err
}

// drainAnswer collects content chunks until the terminal event.
func drainAnswer(ctx context.Context, events <-chan core.Event) (string, error) {
	var answer strings.Builder
	var turnErr error
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return "", core.ErrStreamTruncated
			}
			switch ev.Type {
			case core.EventContent:
				answer.WriteString(ev.Content)
			case core.EventError:
				turnErr = errors.New(ev.Err)
			case core.EventStreamComplete:
				if turnErr != nil {
					return "", turnErr
				}
				return answer.String(), nil
			}
		}
	}
}
