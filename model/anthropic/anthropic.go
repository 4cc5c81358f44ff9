// Package anthropic implements core.Capability using the Anthropic Messages
// API. Generation is non-streaming; each round's answer text reaches the
// listener as one content chunk per text block.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/salesmesh/core"
	"github.com/hupe1980/salesmesh/model"
)

// Options configures the Anthropic capability (agent name, model id,
// temperature, max tokens, API key). Extend via functional options to
// preserve stability.
type Options struct {
	AgentName     string
	Model         anthropic.Model
	Temperature   float64
	MaxTokens     int64
	MaxModelCalls int
	APIKey        string
}

// Capability drives conversational turns through the Anthropic Messages API.
type Capability struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		AgentName:     "sales-assistant",
		Model:         anthropic.ModelClaude3_5Sonnet20241022,
		Temperature:   0.7,
		MaxTokens:     4096,
		MaxModelCalls: model.DefaultMaxModelCalls,
	}
}

// New creates a new Anthropic capability using the official client
func New(optFns ...func(o *Options)) *Capability {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Capability{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic capability from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Capability {
	opts := defaultOptions()

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Capability{client: client, opts: opts}
}

// Name implements core.Capability.
func (c *Capability) Name() string { return c.opts.AgentName }

// Invoke implements core.Capability. It calls the model in rounds, executing
// requested tools between rounds, until the model stops requesting tools, and
// returns the concatenation of all answer text emitted along the way.
func (c *Capability) Invoke(ctx context.Context, inv core.Invocation, listener core.ActivityListener) (string, error) {
	decls := model.Index(inv.Functions)
	messages := buildMessages(inv)
	tools := buildTools(inv.Functions)

	var answer strings.Builder
	for range c.opts.MaxModelCalls {
		params := anthropic.MessageNewParams{
			Model:       c.opts.Model,
			Messages:    messages,
			MaxTokens:   c.opts.MaxTokens,
			Temperature: anthropic.Float(c.opts.Temperature),
		}
		if inv.Instructions != "" {
			params.System = []anthropic.TextBlockParam{{Text: inv.Instructions}}
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic api error: %w", err)
		}

		var toolUses []anthropic.ToolUseBlock
		var assistantBlocks []anthropic.ContentBlockParamUnion
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textBlock := block.AsText()
				if textBlock.Text != "" {
					answer.WriteString(textBlock.Text)
					listener.OnContent(textBlock.Text)
					assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(textBlock.Text))
				}
			case "tool_use":
				toolBlock := block.AsToolUse()
				toolUses = append(toolUses, toolBlock)
				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(
					toolBlock.ID,
					toolBlock.Input,
					toolBlock.Name,
				))
			}
		}

		if len(toolUses) == 0 {
			return answer.String(), nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))

		var resultBlocks []anthropic.ContentBlockParamUnion
		for _, tu := range toolUses {
			args := decodeInput(tu.Input)
			listener.OnFunctionCall(tu.Name, tu.ID, args)
			result := model.Execute(ctx, decls, tu.Name, args)
			listener.OnFunctionResult(tu.Name, tu.ID, result)
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(tu.ID, result, false))
		}
		messages = append(messages, anthropic.NewUserMessage(resultBlocks...))
		listener.OnIntermediate(fmt.Sprintf("executed %d function call(s)", len(toolUses)))
	}

	return "", fmt.Errorf("no final answer after %d model calls", c.opts.MaxModelCalls)
}

// decodeInput renders the tool input into the argument map reported to the
// listener and passed to the function.
func decodeInput(input any) map[string]any {
	if input == nil {
		return map[string]any{}
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return map[string]any{}
	}
	return core.DecodeArguments(string(raw))
}

// buildMessages converts committed history plus the new query into Anthropic
// message format. Instructions travel separately as the system prompt.
func buildMessages(inv core.Invocation) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(inv.History)+1)
	for _, msg := range inv.History {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(inv.Query)))
	return messages
}

// buildTools converts function declarations to Anthropic tool format
func buildTools(fns []core.FunctionDecl) []anthropic.ToolUnionParam {
	if len(fns) == 0 {
		return nil
	}

	tools := make([]anthropic.ToolUnionParam, len(fns))
	for i, fn := range fns {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if fn.Parameters != nil {
			if properties, exists := fn.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := fn.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					var names []string
					for _, r := range req {
						if s, ok := r.(string); ok {
							names = append(names, s)
						}
					}
					inputSchema.Required = names
				}
			}
		}

		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, fn.Name)
	}

	return tools
}
