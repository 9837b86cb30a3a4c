package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
)

// DefaultMaxToolRounds bounds how many times the model may call tools in
// one request.
const DefaultMaxToolRounds = 5

var (
	ErrEmptyConversation = errors.New("conversation has no user or assistant messages")
	ErrTooManyToolRounds = errors.New("tool round limit reached")
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the client's conversation. Content is either a
// string or an array of {"type":"text","text":...} parts.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = ""

	content := bytes.TrimSpace(raw.Content)
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		return nil
	}
	if content[0] == '"' {
		return json.Unmarshal(content, &m.Content)
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return fmt.Errorf("message content must be a string or an array of parts: %w", err)
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" {
			continue
		}
		b.WriteString(p.Text)
	}
	m.Content = b.String()
	return nil
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse is the result handed back to the model for one call.
type ToolResponse struct {
	ID       string
	Name     string
	Response map[string]any
}

// Turn is one step of the conversation as seen by the model.
type Turn struct {
	Role      Role
	Text      string
	Calls     []ToolCall
	Responses []ToolResponse
}

type CompletionRequest struct {
	System  string
	History []Turn
	Tools   []Tool
}

// Completion is one model reply: text, tool calls, or both.
type Completion struct {
	Text  string
	Calls []ToolCall
}

// Completer is the port to a chat model.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

type EventType string

const (
	EventText       EventType = "text"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventError      EventType = "error"
	EventDone       EventType = "done"
)

// Event is one line of the streamed chat response.
type Event struct {
	Type   EventType      `json:"type"`
	Text   string         `json:"text,omitempty"`
	Name   string         `json:"name,omitempty"`
	Args   map[string]any `json:"args,omitempty"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Session drives the completion loop for a single request.
type Session struct {
	completer Completer
	bridge    *Bridge
	maxRounds int
	now       func() time.Time
	logger    *log.Logger
}

func NewSession(completer Completer, bridge *Bridge, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Session{
		completer: completer,
		bridge:    bridge,
		maxRounds: DefaultMaxToolRounds,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentChat),
	}
}

// WithMaxToolRounds sets the tool round limit. Non-positive values keep the
// default.
func (s *Session) WithMaxToolRounds(n int) *Session {
	if n > 0 {
		s.maxRounds = n
	}
	return s
}

// WithClock overrides the date given to the model as "today".
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Run completes the conversation for userID, executing tool calls as the
// model asks for them. Every produced event is passed to emit; an emit
// error stops the loop. The done event is left to the caller.
func (s *Session) Run(ctx context.Context, userID string, msgs []Message, emit func(Event) error) error {
	history := historyFromMessages(msgs)
	if len(history) == 0 {
		return ErrEmptyConversation
	}

	req := CompletionRequest{
		System:  SystemPrompt(s.now()),
		History: history,
		Tools:   s.bridge.Tools(),
	}

	for round := 0; ; round++ {
		completion, err := s.completer.Complete(ctx, req)
		if err != nil {
			return fmt.Errorf("complete round %d: %w", round, err)
		}

		if completion.Text != "" {
			if err := emit(Event{Type: EventText, Text: completion.Text}); err != nil {
				return err
			}
		}
		if len(completion.Calls) == 0 {
			return nil
		}
		if round >= s.maxRounds {
			s.logger.WarnContext(ctx, "Tool round limit reached",
				log.FieldUserID, userID,
				log.FieldRound, round)
			return ErrTooManyToolRounds
		}

		responses := make([]ToolResponse, 0, len(completion.Calls))
		for _, call := range completion.Calls {
			if err := emit(Event{Type: EventToolCall, Name: call.Name, Args: call.Args}); err != nil {
				return err
			}
			result := s.invoke(ctx, userID, round, call)
			if err := emit(Event{Type: EventToolResult, Name: call.Name, Result: result}); err != nil {
				return err
			}
			responses = append(responses, ToolResponse{ID: call.ID, Name: call.Name, Response: result})
		}

		req.History = append(req.History,
			Turn{Role: RoleAssistant, Text: completion.Text, Calls: completion.Calls},
			Turn{Role: RoleTool, Responses: responses},
		)
	}
}

// invoke runs one call and returns the object fed back to the model. Tool
// failures become {"status":"error"} results so the model can explain them.
func (s *Session) invoke(ctx context.Context, userID string, round int, call ToolCall) map[string]any {
	result, err := s.bridge.Invoke(ctx, userID, call.Name, call.Args)
	if err == nil {
		m, convErr := result.AsMap()
		if convErr == nil {
			s.logger.InfoContext(ctx, "Tool call succeeded",
				log.FieldUserID, userID,
				log.FieldTool, call.Name,
				log.FieldRound, round,
				log.FieldTransactionID, result.Transaction.ID)
			return m
		}
		err = convErr
	}

	s.logger.WarnContext(ctx, "Tool call failed",
		log.FieldUserID, userID,
		log.FieldTool, call.Name,
		log.FieldRound, round,
		log.FieldError, err.Error())

	return map[string]any{"status": "error", "error": toolErrorMessage(err)}
}

// toolErrorMessage keeps store internals out of the conversation.
func toolErrorMessage(err error) string {
	var ae *ArgumentError
	switch {
	case errors.As(err, &ae), core.IsValidation(err), errors.Is(err, ErrUnknownTool):
		return err.Error()
	case errors.Is(err, core.ErrUnauthenticated):
		return "you must be signed in to log transactions"
	default:
		return "the transaction could not be saved, please try again"
	}
}

// historyFromMessages keeps user and assistant text. Client-supplied system
// and tool messages are dropped.
func historyFromMessages(msgs []Message) []Turn {
	history := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch Role(m.Role) {
		case RoleUser:
			history = append(history, Turn{Role: RoleUser, Text: text})
		case RoleAssistant:
			history = append(history, Turn{Role: RoleAssistant, Text: text})
		}
	}
	return history
}
