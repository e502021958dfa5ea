package payment_types

import (
	"context"

	"github.com/shopspring/decimal"
)

type PaymentProcessor interface {
	CreatePayment(ctx context.Context, invoiceNumber string, amount decimal.Decimal, callbackURL string) (*PaymentCreateResult, error)
	ExecutePayment(ctx context.Context, paymentID string) (*PaymentQueryResult, error)
	QueryPayment(ctx context.Context, paymentID string) (*PaymentQueryResult, error)
}

type PaymentCreateResult struct {
	PaymentID   string
	RedirectURL string
	Raw         map[string]any
}

type PaymentQueryResult struct {
	TransactionStatus string
	StatusMessage     string
	TrxID             string
	Amount            decimal.Decimal
	PayerReference    string
	Raw               map[string]any
}
