package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ledgerlens/internal/core"
)

var ErrUnknownTool = errors.New("unknown tool")

// TransactionLogger stores one transaction. services.TransactionService
// implements it.
type TransactionLogger interface {
	LogTransaction(ctx context.Context, req core.TransactionRequest) (core.Transaction, error)
}

// ToolResult is what a successful logTransaction call returns to the model.
type ToolResult struct {
	Status      string           `json:"status"`
	Transaction core.Transaction `json:"transaction"`
}

// AsMap converts r to the generic object form model libraries expect.
func (r ToolResult) AsMap() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Bridge turns validated tool calls into ingestion requests. It holds no
// per-request state.
type Bridge struct {
	transactions TransactionLogger
}

func NewBridge(transactions TransactionLogger) *Bridge {
	return &Bridge{transactions: transactions}
}

// Tools lists the tools the bridge can execute.
func (b *Bridge) Tools() []Tool {
	return []Tool{LogTransactionTool}
}

// Invoke executes the named tool for userID.
func (b *Bridge) Invoke(ctx context.Context, userID, name string, args map[string]any) (ToolResult, error) {
	if name != LogTransactionToolName {
		return ToolResult{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	in, err := DecodeLogTransactionArgs(args)
	if err != nil {
		return ToolResult{}, err
	}

	tx, err := b.transactions.LogTransaction(ctx, core.TransactionRequest{
		UserID:          userID,
		Amount:          in.Amount,
		Type:            core.TransactionType(in.Type),
		CategoryName:    in.Category,
		Description:     in.Description,
		TransactionDate: in.TransactionDate,
	})
	if err != nil {
		return ToolResult{}, err
	}

	return ToolResult{Status: "success", Transaction: tx}, nil
}
