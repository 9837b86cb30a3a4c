package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"ledgerlens/internal/auth"
	"ledgerlens/internal/core"
	"ledgerlens/internal/log"
	"ledgerlens/internal/store"
)

const (
	defaultTransactionsLimit = 10
	maxTransactionsLimit     = 100

	maxAssetNameLength = 100
	maxAssetTypeLength = 50

	devSessionTTL = 24 * time.Hour
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)
	limit := parseLimit(r, defaultTransactionsLimit, maxTransactionsLimit)

	txs, err := s.deps.Records.ListRecentTransactions(ctx, userID, limit)
	if err != nil {
		s.httpLog.LogError(ctx, "List transactions failed", err, log.OpList,
			log.NewFields().WithUserID(userID))
		writeJSONError(w, http.StatusInternalServerError, "Could not load transactions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	assets, err := s.deps.Records.ListAssets(ctx, userID)
	if err != nil {
		s.httpLog.LogError(ctx, "List assets failed", err, log.OpList,
			log.NewFields().WithUserID(userID))
		writeJSONError(w, http.StatusInternalServerError, "Could not load assets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets})
}

type assetRequest struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	CurrentValue *decimal.Decimal `json:"currentValue"`
}

type fieldError struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

func (req assetRequest) validate() *fieldError {
	switch {
	case req.Name == "":
		return &fieldError{Field: "name", Error: "name cannot be empty"}
	case utf8.RuneCountInString(req.Name) > maxAssetNameLength:
		return &fieldError{Field: "name", Error: "name too long (max 100 characters)"}
	case req.Type == "":
		return &fieldError{Field: "type", Error: "type cannot be empty"}
	case utf8.RuneCountInString(req.Type) > maxAssetTypeLength:
		return &fieldError{Field: "type", Error: "type too long (max 50 characters)"}
	case req.CurrentValue == nil:
		return &fieldError{Field: "currentValue", Error: "currentValue is required"}
	case req.CurrentValue.IsNegative():
		return &fieldError{Field: "currentValue", Error: "currentValue cannot be negative"}
	}
	return nil
}

// handleUpsertAsset creates an asset, or replaces the caller's asset with
// the same id. lastUpdated is always set to now.
func (s *Server) handleUpsertAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	var req assetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = sanitizeInput(req.ID)
	req.Name = sanitizeInput(req.Name)
	req.Type = sanitizeInput(req.Type)
	if fe := req.validate(); fe != nil {
		writeJSON(w, http.StatusUnprocessableEntity, fe)
		return
	}

	asset, err := s.deps.Records.UpsertAsset(ctx, userID, core.Asset{
		ID:           req.ID,
		Name:         req.Name,
		Type:         req.Type,
		CurrentValue: req.CurrentValue.Round(core.CurrencyScale),
		LastUpdated:  core.FormatTimestamp(time.Now()),
	})
	if errors.Is(err, store.ErrConflict) {
		writeJSONError(w, http.StatusConflict, "Asset id is already in use")
		return
	}
	if err != nil {
		s.httpLog.LogError(ctx, "Upsert asset failed", err, log.OpUpdate,
			log.NewFields().WithUserID(userID))
		writeJSONError(w, http.StatusInternalServerError, "Could not save asset")
		return
	}

	s.logger.InfoContext(ctx, "Asset saved",
		log.FieldUserID, userID,
		"asset_id", asset.ID,
		log.FieldType, asset.Type)
	writeJSON(w, http.StatusOK, asset)
}

type devLoginRequest struct {
	UserID string `json:"userId"`
}

// handleDevLogin issues a session for any user id. It is only routed when
// AUTH_DEV_LOGIN is enabled.
func (s *Server) handleDevLogin(w http.ResponseWriter, r *http.Request) {
	var req devLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID := sanitizeInput(req.UserID)
	if userID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, fieldError{Field: "userId", Error: "userId cannot be empty"})
		return
	}

	token, err := s.deps.Auth.Issue(userID, devSessionTTL)
	if err != nil {
		s.httpLog.LogError(r.Context(), "Issue dev session failed", err, log.OpCreate, nil)
		writeJSONError(w, http.StatusInternalServerError, "Could not issue session")
		return
	}

	auth.SetSessionCookie(w, token, devSessionTTL, r.TLS != nil)
	s.logger.WarnContext(r.Context(), "Dev login issued session", log.FieldUserID, userID)
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "userId": userID})
}
