package core

import "context"

// FunctionDecl declares one callable capability function: name, model-facing
// description, JSON-schema-like parameter map and the implementation itself.
// Call may return any value; the invoking capability renders it to result
// text via RenderResult. An error return is rendered into failure text rather
// than aborting the turn.
type FunctionDecl struct {
	Name        string
	Description string
	Parameters  map[string]any
	Call        func(ctx context.Context, args map[string]any) (any, error)
}

// Invocation bundles everything a capability needs for one turn: committed
// history, the new user query, rendered instructions and the declared
// functions it may call.
type Invocation struct {
	History      []Message
	Query        string
	Instructions string
	Functions    []FunctionDecl
}

// Capability is the opaque agent runtime that answers questions and decides
// which declared functions to call.
//
// Contract:
//   - Invoke drives the turn to completion and returns the final answer text.
//   - Every function call, function result and answer chunk is reported to
//     the listener synchronously, in order, before Invoke returns.
//   - Function failures surface as result text through the listener; only
//     failures of the capability itself are returned as an error.
type Capability interface {
	// Name identifies the agent in the turn-opening thread_info event.
	Name() string

	Invoke(ctx context.Context, inv Invocation, listener ActivityListener) (string, error)
}
