// Package gemini implements chat.Completer with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ledgerlens/internal/chat"
	"ledgerlens/internal/log"
)

const DefaultModel = "gemini-2.5-flash"

var ErrNoAPIKey = errors.New("gemini: API key is required")

// Completer sends the conversation to Gemini with function calling enabled.
type Completer struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

var _ chat.Completer = (*Completer)(nil)

func New(ctx context.Context, apiKey, model string, logger *log.Logger) (*Completer, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Completer{
		client: client,
		model:  model,
		logger: logger.WithComponent(log.ComponentChat),
	}, nil
}

// Complete implements chat.Completer.
func (c *Completer) Complete(ctx context.Context, req chat.CompletionRequest) (chat.Completion, error) {
	config := &genai.GenerateContentConfig{
		Tools: buildTools(req.Tools),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, buildContents(req.History), config)
	if err != nil {
		return chat.Completion{}, fmt.Errorf("generate content: %w", err)
	}

	completion, err := fromResponse(resp)
	if err != nil {
		return chat.Completion{}, err
	}

	c.logger.DebugContext(ctx, "Model replied",
		"model", c.model,
		"text_length", len(completion.Text),
		"tool_calls", len(completion.Calls))

	return completion, nil
}

func buildContents(history []chat.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		switch turn.Role {
		case chat.RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: turn.Text}}})
		case chat.RoleAssistant:
			parts := make([]*genai.Part, 0, 1+len(turn.Calls))
			if turn.Text != "" {
				parts = append(parts, &genai.Part{Text: turn.Text})
			}
			for _, call := range turn.Calls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: call.Args}})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
		case chat.RoleTool:
			parts := make([]*genai.Part, 0, len(turn.Responses))
			for _, r := range turn.Responses {
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{ID: r.ID, Name: r.Name, Response: r.Response}})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "user", Parts: parts})
			}
		}
	}
	return contents
}

func buildTools(tools []chat.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toSchema maps the tool schema onto Gemini's OpenAPI subset. Gemini has no
// exclusive minimum, so the bound is kept as an inclusive minimum plus a
// description; the bridge enforces the exact rule.
func toSchema(s chat.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       make(map[string]*genai.Schema, len(s.Properties)),
		Required:         append([]string(nil), s.Required...),
		PropertyOrdering: append([]string(nil), s.Order...),
	}
	for name, p := range s.Properties {
		prop := &genai.Schema{Description: p.Description}
		switch p.Type {
		case chat.TypeNumber:
			prop.Type = genai.TypeNumber
		default:
			prop.Type = genai.TypeString
		}
		if len(p.Enum) > 0 {
			prop.Enum = append([]string(nil), p.Enum...)
		}
		if p.ExclusiveMinimum != nil {
			minimum := *p.ExclusiveMinimum
			prop.Minimum = &minimum
			prop.Description = strings.TrimSpace(fmt.Sprintf("%s (must be greater than %g)", p.Description, minimum))
		}
		out.Properties[name] = prop
	}
	return out
}

func fromResponse(resp *genai.GenerateContentResponse) (chat.Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return chat.Completion{}, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return chat.Completion{}, errors.New("empty response from model")
	}

	var (
		text  strings.Builder
		calls []chat.ToolCall
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			calls = append(calls, chat.ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
	}
	return chat.Completion{Text: text.String(), Calls: calls}, nil
}
