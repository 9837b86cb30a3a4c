package services

import (
	"context"
	"fmt"

	"ledgerlens/internal/core"
	"ledgerlens/internal/ledger"
	"ledgerlens/internal/log"
)

// EventPublisher announces stored transactions to downstream consumers.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, id, userID string) error
	Close() error
}

// TransactionService orchestrates transaction ingestion and the
// transaction.created event.
type TransactionService struct {
	ingestor  *ledger.Ingestor
	publisher EventPublisher
	logger    *log.Logger
}

// NewTransactionService wires the ingestor to an optional publisher. Pass a
// nil publisher when no broker is configured.
func NewTransactionService(ingestor *ledger.Ingestor, publisher EventPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		ingestor:  ingestor,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// LogTransaction stores req and then publishes the event. The stored row is
// the source of truth, so a publish failure is logged and not returned.
func (s *TransactionService) LogTransaction(ctx context.Context, req core.TransactionRequest) (core.Transaction, error) {
	tx, err := s.ingestor.Ingest(ctx, req)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.publishCreated(ctx, tx.ID, req.UserID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, tx.ID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}

	return tx, nil
}

func (s *TransactionService) publishCreated(ctx context.Context, id, userID string) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, id, userID)
}

// Close closes the publisher, if any.
func (s *TransactionService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
