// Package runner drives one agent turn as a background unit of work, wiring
// the activity listener into the capability and terminating the event stream
// exactly once, so that event emission and consumption overlap.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/logging"
	"github.com/hupe1980/salesmesh/session"
)

var (
	// ErrTurnActive reports a second turn submitted for a thread whose
	// previous turn is still running. Reported before any streaming begins.
	ErrTurnActive = errors.New("a turn is already active for this thread")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid turn request")
)

// TurnRequest carries one user query plus its selling context.
type TurnRequest struct {
	Query                  string
	ThreadID               string
	UserCompany            string
	TargetAccount          string
	DemandStage            string
	AdditionalInstructions string
}

func (r TurnRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Query) == "":
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	case strings.TrimSpace(r.UserCompany) == "":
		return fmt.Errorf("%w: user_company is required", ErrInvalidRequest)
	case strings.TrimSpace(r.TargetAccount) == "":
		return fmt.Errorf("%w: target_account is required", ErrInvalidRequest)
	}
	return nil
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// PushTimeout bounds how long event emission may wait on a slow consumer.
	PushTimeout time.Duration
	// Logger receives structured turn lifecycle records.
	Logger logging.Logger
}

// Runner executes turns against one capability, resolving sessions through
// the injected registry. Public methods are safe for concurrent use.
type Runner struct {
	capability  core.Capability
	registry    session.Registry
	functions   []core.FunctionDecl
	bufSize     int
	pushTimeout time.Duration
	logger      logging.Logger
}

// New constructs a Runner with optional overrides.
func New(capability core.Capability, registry session.Registry, functions []core.FunctionDecl, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 256,
		PushTimeout:     core.DefaultPushTimeout,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		capability:  capability,
		registry:    registry,
		functions:   functions,
		bufSize:     opts.EventBufferSize,
		pushTimeout: opts.PushTimeout,
		logger:      opts.Logger,
	}
}

// RunTurn starts one turn and returns its resolved thread identifier plus the
// ordered event stream. Within a turn the stream opens with thread_info and
// terminates with exactly one stream_complete, preceded by at most one error.
//
// Validation failures and same-thread conflicts are returned as errors before
// any event is produced. The turn's query and answer are committed to the
// session only on success, so a failed or abandoned turn leaves history
// untouched.
func (r *Runner) RunTurn(ctx context.Context, req TurnRequest) (string, <-chan core.Event, error) {
	if err := req.validate(); err != nil {
		return "", nil, err
	}

	instructions, err := renderInstructions(req)
	if err != nil {
		return "", nil, fmt.Errorf("render instructions: %w", err)
	}

	sess, threadID := r.registry.GetOrCreate(req.ThreadID)
	if !sess.TryBegin() {
		return threadID, nil, ErrTurnActive
	}

	ch := core.NewChannel(func(o *core.ChannelOptions) {
		o.BufferSize = r.bufSize
		o.PushTimeout = r.pushTimeout
	})

	go r.runTurn(ctx, sess, threadID, req, instructions, ch)

	return threadID, ch.Events(), nil
}

func (r *Runner) runTurn(
	ctx context.Context,
	sess *core.Session,
	threadID string,
	req TurnRequest,
	instructions string,
	ch *core.Channel,
) {
	defer sess.End()
	defer ch.Close()

	if err := ch.Push(ctx, core.NewThreadInfoEvent(r.capability.Name(), threadID)); err != nil {
		r.logger.Warn("runner.turn_not_started", "thread_id", threadID, "error", err.Error())
		return
	}

	channelListener := core.NewChannelListener(ctx, ch, r.logger)
	listener := newRecordingListener(channelListener)

	inv := core.Invocation{
		History:      sess.History(),
		Query:        req.Query,
		Instructions: instructions,
		Functions:    r.functions,
	}

	answer, err := r.capability.Invoke(ctx, inv, listener)
	if err != nil {
		if ctx.Err() != nil {
			// Consumer is gone: nothing to report, nothing was committed.
			r.logger.Debug("runner.turn_abandoned", "thread_id", threadID)
			return
		}
		r.logger.Error("runner.turn_failed", "thread_id", threadID, "error", err.Error())
		if perr := ch.Push(ctx, core.NewErrorEvent(err.Error())); perr != nil {
			return
		}
		_ = ch.Push(ctx, core.NewStreamCompleteEvent())
		return
	}

	if channelListener.Failed() {
		// The consumer stalled past the push bound mid-stream. The client did
		// not see the whole answer, so committing it would silently diverge
		// future context from what was observed. Abandon without a terminal
		// event; the closed channel signals the truncation.
		r.logger.Warn("runner.turn_abandoned_stalled_consumer", "thread_id", threadID)
		return
	}

	sess.CommitTurn(req.Query, answer, listener.Records())

	if err := ch.Push(ctx, core.NewStreamCompleteEvent()); err != nil {
		r.logger.Warn("runner.completion_dropped", "thread_id", threadID, "error", err.Error())
		return
	}

	r.logger.Info("runner.turn_complete", "thread_id", threadID, "function_calls", len(listener.Records()))
}
