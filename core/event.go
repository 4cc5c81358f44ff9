package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventType tags the members of the event union. The string values double as
// the record labels on the wire.
type EventType string

const (
	// EventThreadInfo announces the agent name and thread identifier. It is
	// the first event of a turn when present.
	EventThreadInfo EventType = "thread_info"
	// EventFunctionCall reports that the agent decided to invoke a function.
	EventFunctionCall EventType = "function_call"
	// EventFunctionResult reports the outcome of an earlier function call,
	// paired by call id.
	EventFunctionResult EventType = "function_result"
	// EventContent carries a chunk of the final answer. Concatenating all
	// content chunks of a successful turn in order reproduces the answer.
	EventContent EventType = "content"
	// EventIntermediate carries a free-form progress notice.
	EventIntermediate EventType = "intermediate"
	// EventStreamComplete terminates a turn. Exactly one per turn, always last.
	EventStreamComplete EventType = "stream_complete"
	// EventError reports a failed turn. At most one per turn, immediately
	// before the terminating stream_complete.
	EventError EventType = "error"
)

// Event is one member of the tagged union delivered over a turn's channel.
// Only the fields belonging to its Type are populated. Seq is assigned by the
// channel on push and is strictly monotonic within a turn, making the FIFO
// guarantee checkable by consumers.
type Event struct {
	Type EventType `json:"type"`
	Seq  uint64    `json:"seq"`

	AgentName    string         `json:"agent_name,omitempty"`
	ThreadID     string         `json:"thread_id,omitempty"`
	FunctionName string         `json:"function_name,omitempty"`
	CallID       string         `json:"call_id,omitempty"`
	Arguments    map[string]any `json:"arguments,omitempty"`
	Result       string         `json:"result,omitempty"`
	Content      string         `json:"content,omitempty"`
	Err          string         `json:"error,omitempty"`
}

// NewThreadInfoEvent creates the turn-opening event.
func NewThreadInfoEvent(agentName, threadID string) Event {
	return Event{Type: EventThreadInfo, AgentName: agentName, ThreadID: threadID}
}

// NewFunctionCallEvent reports a function invocation with decoded arguments.
func NewFunctionCallEvent(functionName, callID string, args map[string]any) Event {
	if args == nil {
		args = map[string]any{}
	}
	return Event{Type: EventFunctionCall, FunctionName: functionName, CallID: callID, Arguments: args}
}

// NewFunctionResultEvent reports the textual outcome of a function call.
func NewFunctionResultEvent(functionName, callID, result string) Event {
	return Event{Type: EventFunctionResult, FunctionName: functionName, CallID: callID, Result: result}
}

// NewContentEvent wraps a chunk of the final answer.
func NewContentEvent(chunk string) Event {
	return Event{Type: EventContent, Content: chunk}
}

// NewIntermediateEvent wraps a free-form progress notice.
func NewIntermediateEvent(note string) Event {
	return Event{Type: EventIntermediate, Content: note}
}

// NewStreamCompleteEvent creates the terminal event of a turn.
func NewStreamCompleteEvent() Event {
	return Event{Type: EventStreamComplete}
}

// NewErrorEvent wraps a turn failure message.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Err: message}
}

// IsTerminal reports whether the event ends the turn's stream.
func (e Event) IsTerminal() bool { return e.Type == EventStreamComplete }

// Payload renders the JSON object framed under the event's type label.
// The shape depends on the type; seq is always included.
func (e Event) Payload() map[string]any {
	p := map[string]any{"seq": e.Seq}
	switch e.Type {
	case EventThreadInfo:
		p["agent_name"] = e.AgentName
		p["thread_id"] = e.ThreadID
	case EventFunctionCall:
		args := e.Arguments
		if args == nil {
			args = map[string]any{}
		}
		p["function_name"] = e.FunctionName
		p["call_id"] = e.CallID
		p["arguments"] = args
	case EventFunctionResult:
		p["function_name"] = e.FunctionName
		p["call_id"] = e.CallID
		p["result"] = e.Result
	case EventContent, EventIntermediate:
		p["content"] = e.Content
	case EventError:
		p["error"] = e.Err
	case EventStreamComplete:
	}
	return p
}

// NewID mints a unique identifier for threads and function calls.
func NewID() string { return uuid.NewString() }

// RenderResult converts an arbitrary function return value to text.
// Strings pass through, anything JSON-serializable is encoded structurally,
// and the remainder falls back to fmt.Sprint so the rendering is reproducible.
func RenderResult(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// DecodeArguments parses a serialized argument payload into a map. Unknown or
// malformed payloads decode to an empty map rather than failing the turn.
func DecodeArguments(raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	return args
}
