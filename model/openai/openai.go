// Package openai implements core.Capability using the OpenAI Chat Completions
// API with streaming and function/tool calling. Answer text is forwarded to
// the listener delta by delta as the API produces it.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/model"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete function calls when the round finishes.
type aggCall struct{ id, name, args string }

// Options configure the OpenAI capability.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	AgentName           string
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	MaxModelCalls       int
}

// Capability drives conversational turns through the OpenAI Chat Completions API.
type Capability struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI capability using the official client
func New(optFns ...func(o *Options)) *Capability {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI capability from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Capability {
	opts := Options{
		AgentName:           "sales-assistant",
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		MaxModelCalls:       model.DefaultMaxModelCalls,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Capability{client: client, opts: opts}
}

// Name implements core.Capability.
func (c *Capability) Name() string { return c.opts.AgentName }

// Invoke implements core.Capability. It streams model rounds until the model
// answers without requesting tools, executing requested functions between
// rounds, and returns the concatenation of all streamed answer chunks.
func (c *Capability) Invoke(ctx context.Context, inv core.Invocation, listener core.ActivityListener) (string, error) {
	decls := model.Index(inv.Functions)
	messages := buildMessages(inv)
	tools := buildTools(inv.Functions)

	var answer strings.Builder
	for range c.opts.MaxModelCalls {
		params := openai.ChatCompletionNewParams{
			Messages:            messages,
			Model:               c.opts.Model,
			Temperature:         openai.Float(c.opts.Temperature),
			MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		calls, err := c.streamRound(ctx, params, listener, &answer)
		if err != nil {
			return "", err
		}
		if len(calls) == 0 {
			return answer.String(), nil
		}

		messages = append(messages, assistantToolCallMessage(calls))
		for _, ac := range calls {
			args := core.DecodeArguments(ac.args)
			listener.OnFunctionCall(ac.name, ac.id, args)
			result := model.Execute(ctx, decls, ac.name, args)
			listener.OnFunctionResult(ac.name, ac.id, result)
			messages = append(messages, openai.ToolMessage(result, ac.id))
		}
		listener.OnIntermediate(fmt.Sprintf("executed %d function call(s)", len(calls)))
	}

	return "", fmt.Errorf("no final answer after %d model calls", c.opts.MaxModelCalls)
}

// streamRound runs one streaming completion, forwarding text deltas to the
// listener and aggregating tool call deltas. It returns the completed tool
// calls in first-seen order, empty when the model answered in text.
func (c *Capability) streamRound(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	listener core.ActivityListener,
	answer *strings.Builder,
) ([]*aggCall, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	toolAgg := map[int64]*aggCall{}
	var order []int64
	for stream.Next() {
		ck := stream.Current()
		for _, choice := range ck.Choices {
			if choice.Delta.Content != "" {
				answer.WriteString(choice.Delta.Content)
				listener.OnContent(choice.Delta.Content)
			}
			for _, tc := range choice.Delta.ToolCalls {
				ac, ok := toolAgg[tc.Index]
				if !ok {
					ac = &aggCall{}
					toolAgg[tc.Index] = ac
					order = append(order, tc.Index)
				}
				if tc.ID != "" {
					ac.id = tc.ID
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					ac.args += tc.Function.Arguments
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai streaming error: %w", err)
	}

	calls := make([]*aggCall, 0, len(order))
	for _, idx := range order {
		calls = append(calls, toolAgg[idx])
	}
	return calls, nil
}

// buildMessages converts instructions, committed history and the new query
// into OpenAI chat messages.
func buildMessages(inv core.Invocation) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(inv.History)+2)
	if inv.Instructions != "" {
		messages = append(messages, openai.SystemMessage(inv.Instructions))
	}
	for _, msg := range inv.History {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(inv.Query))
	return messages
}

// buildTools converts function declarations into OpenAI tool definitions.
func buildTools(fns []core.FunctionDecl) []openai.ChatCompletionToolParam {
	if len(fns) == 0 {
		return nil
	}
	tools := make([]openai.ChatCompletionToolParam, len(fns))
	for i, fn := range fns {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        fn.Name,
				Description: openai.String(fn.Description),
				Parameters:  fn.Parameters,
			},
		}
	}
	return tools
}

// assistantToolCallMessage replays the model's tool call request into the
// conversation so the tool results that follow have their antecedent.
func assistantToolCallMessage(calls []*aggCall) openai.ChatCompletionMessageParamUnion {
	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
	for i, ac := range calls {
		toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   ac.id,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      ac.name,
				Arguments: ac.args,
			},
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &openai.ChatCompletionAssistantMessageParam{
		Role:      "assistant",
		ToolCalls: toolCalls,
	}}
}
