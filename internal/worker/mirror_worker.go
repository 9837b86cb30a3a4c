// Package worker mirrors stored transactions into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"

	"ledgerlens/internal/amqp"
	"ledgerlens/internal/log"
	"ledgerlens/internal/sheets"
	"ledgerlens/internal/store"
)

// MirrorWorker handles transaction.created events by appending the stored
// row to the sheet.
type MirrorWorker struct {
	reader store.TransactionReader
	sheets sheets.TransactionAppender
	logger *log.Logger
}

func NewMirrorWorker(reader store.TransactionReader, appender sheets.TransactionAppender, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		reader: reader,
		sheets: appender,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionCreated mirrors one transaction. A transaction that no
// longer exists is skipped so the message is not redelivered forever; any
// other failure is returned for requeue.
func (w *MirrorWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	w.logger.DebugContext(ctx, "Processing transaction event",
		log.FieldTransactionID, msg.ID,
		log.FieldUserID, msg.UserID)

	tx, err := w.reader.GetTransaction(ctx, msg.UserID, msg.ID)
	if errors.Is(err, store.ErrNoRows) {
		w.logger.WarnContext(ctx, "Transaction not found, skipping mirror",
			log.FieldTransactionID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from store: %w", err)
	}

	ref, err := w.sheets.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append transaction to sheet: %w", err)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		log.FieldTransactionID, tx.ID,
		log.FieldSheetsRef, ref,
		log.FieldOperation, log.OpAppend,
		"published_at", msg.Timestamp)
	return nil
}
