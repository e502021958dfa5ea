package reconciliation

import (
	"context"

	"github.com/shopspring/decimal"

	"prothompay.io/entities"
)

// InvoiceRecord is the narrow view of an invoice the reconciler needs.
type InvoiceRecord struct {
	ID       string
	Number   string
	Status   entities.InvoiceStatus
	TotalDue decimal.Decimal
}

// Ledger is the billing system's invoice store as seen by the
// reconciler. Implementations settle an invoice at most once; MarkPaid
// must be a conditional "settle if not already settled" write where the
// backing store allows it.
type Ledger interface {
	// FindInvoiceByNumber resolves an invoice id from its business
	// number. Returns an empty id when no invoice matches.
	FindInvoiceByNumber(ctx context.Context, number string) (string, error)
	GetInvoice(ctx context.Context, invoiceID string) (*InvoiceRecord, error)
	RecordPayment(ctx context.Context, invoiceID string, trxID string, amount decimal.Decimal, fee decimal.Decimal) (string, error)
	MarkPaid(ctx context.Context, invoiceID string) error
	// HasTransaction reports whether a transaction with this provider
	// trxID is already attached to the invoice.
	HasTransaction(ctx context.Context, trxID string, invoiceID string) (bool, error)
}
