package reconciliation

import "github.com/shopspring/decimal"

type OutcomeKind string

const (
	OutcomeSuccess                      OutcomeKind = "success"
	OutcomeAlreadyPaid                  OutcomeKind = "already_paid"
	OutcomePending                      OutcomeKind = "pending"
	OutcomeCancelled                    OutcomeKind = "cancelled"
	OutcomeFailed                       OutcomeKind = "failed"
	OutcomeAmountMismatch               OutcomeKind = "amount_mismatch"
	OutcomeInvoiceNotFound              OutcomeKind = "invoice_not_found"
	OutcomeDuplicateTransaction         OutcomeKind = "duplicate_transaction"
	OutcomeSettlementVerificationFailed OutcomeKind = "settlement_verification_failed"
	OutcomeUnknownStatus                OutcomeKind = "unknown_status"
)

// Outcome is the single decision produced by one reconciliation attempt.
// Exactly one is returned per attempt; callers branch on Kind.
type Outcome struct {
	Kind          OutcomeKind
	InvoiceID     string
	InvoiceNumber string
	TrxID         string
	TransactionID string
	AmountPaid    decimal.Decimal
	AmountDue     decimal.Decimal
	Tolerance     decimal.Decimal
	Reason        string
	Raw           map[string]any
}

// Terminal reports whether the payment reached a final state. Pending
// outcomes are the only non-terminal ones.
func (o Outcome) Terminal() bool {
	return o.Kind != OutcomePending
}
