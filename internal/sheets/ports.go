// Package sheets declares the spreadsheet mirror port.
package sheets

import (
	"context"

	"ledgerlens/internal/core"
)

// TransactionAppender writes one stored transaction as a spreadsheet row.
type TransactionAppender interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
