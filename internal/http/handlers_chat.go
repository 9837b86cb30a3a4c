package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ledgerlens/internal/auth"
	"ledgerlens/internal/chat"
	"ledgerlens/internal/log"
)

var examplePrompts = []string{
	"Logged a $15 coffee with friends yesterday",
	"I received my $2,800 paycheck today",
	"Spent $42 on groceries",
}

type chatPageData struct {
	pageData
	ChatEnabled bool
	Examples    []string
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "chat.html", chatPageData{
		pageData:    pageData{Title: "Chat", Active: "chat", SignedIn: auth.UserID(r.Context()) != ""},
		ChatEnabled: s.deps.Chat != nil,
		Examples:    examplePrompts,
	})
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

// handleChat streams the completion loop as newline-delimited JSON events.
// The stream always ends with a done event, even after an error event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil || req.Messages == nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if s.deps.Chat == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "Chat assistant is not configured")
		return
	}
	for i := range req.Messages {
		req.Messages[i].Content = sanitizeInput(req.Messages[i].Content)
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(e chat.Event) error {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
		if e.Type == chat.EventToolResult {
			s.logToolResult(ctx, userID, e.Result)
		}
		return nil
	}

	err := s.deps.Chat.Run(ctx, userID, req.Messages, emit)
	if err != nil && ctx.Err() == nil {
		s.httpLog.LogError(ctx, "Chat request failed", err, log.OpComplete,
			log.NewFields().WithUserID(userID))
		_ = emit(chat.Event{Type: chat.EventError, Error: chatErrorMessage(err)})
	}
	_ = emit(chat.Event{Type: chat.EventDone})
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyConversation):
		return "Send a message to get started."
	case errors.Is(err, chat.ErrTooManyToolRounds):
		return "That request needed too many steps. Please log one transaction at a time."
	default:
		return "The assistant is unavailable right now. Please try again."
	}
}

// logToolResult records transactions stored through the chat tool.
func (s *Server) logToolResult(ctx context.Context, userID string, result map[string]any) {
	if result["status"] != "success" {
		return
	}
	tx, _ := result["transaction"].(map[string]any)
	category, _ := tx["category"].(string)
	s.httpLog.LogTransactionLogged(ctx, userID,
		fmt.Sprint(tx["id"]),
		fmt.Sprint(tx["type"]),
		fmt.Sprint(tx["amount"]),
		category)
}
