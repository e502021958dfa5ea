package reconciliation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"prothompay.io/application/utils"
	"prothompay.io/entities"
	"prothompay.io/infrastructure/logger"
	payment_types "prothompay.io/infrastructure/payments/types"
)

// amountTolerancePercent absorbs currency rounding and provider fee
// differences when comparing the paid amount against the amount due.
var amountTolerancePercent = decimal.NewFromFloat(0.02)

type paymentStatus int

const (
	statusSuccessful paymentStatus = iota
	statusCancelled
	statusFailed
	statusPending
	statusUnknown
)

// classifyStatus maps the provider's reported status pair onto one of
// five states. Checked in precedence order, first match wins: a payload
// carrying both statusMessage "Successful" and transactionStatus
// "Pending" classifies as successful.
func classifyStatus(transactionStatus string, statusMessage string) paymentStatus {
	switch {
	case statusMessage == "Successful" || transactionStatus == "Completed":
		return statusSuccessful
	case transactionStatus == "Cancelled" ||
		statusMessage == "Cancelled" || statusMessage == "Cancel":
		return statusCancelled
	case transactionStatus == "Failed" || transactionStatus == "Reversed" ||
		statusMessage == "Failed" || statusMessage == "Reversed" || statusMessage == "Failure":
		return statusFailed
	case transactionStatus == "Initiated" || transactionStatus == "Authorized" || transactionStatus == "Pending" ||
		statusMessage == "Initiated" || statusMessage == "Authorized" || statusMessage == "Pending" || statusMessage == "In Progress":
		return statusPending
	default:
		return statusUnknown
	}
}

// Reconcile turns a provider-reported payment status into exactly one
// idempotent settlement decision against the invoice ledger. It never
// retries; transient provider failures are the API client's problem.
func Reconcile(ctx context.Context, payment *payment_types.PaymentQueryResult, ledger Ledger) Outcome {
	invoiceNumber := utils.ExtractInvoiceNumber(payment.PayerReference)

	// Resolve the invoice even on failing statuses so the caller can
	// still build a meaningful redirect. Failure to resolve here only
	// degrades to an empty invoice id.
	invoiceID := ""
	if invoiceNumber != "" {
		id, err := ledger.FindInvoiceByNumber(ctx, invoiceNumber)
		if err != nil {
			logger.Warning("could not resolve invoice for reconciliation", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			}, logger.LoggerOptions{
				Key:  "invoiceNumber",
				Data: invoiceNumber,
			})
		} else {
			invoiceID = id
		}
	}

	switch classifyStatus(payment.TransactionStatus, payment.StatusMessage) {
	case statusCancelled:
		return Outcome{
			Kind:          OutcomeCancelled,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Reason:        "payment was cancelled by the payer",
			Raw:           payment.Raw,
		}
	case statusFailed:
		return Outcome{
			Kind:          OutcomeFailed,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Reason:        fmt.Sprintf("payment failed: %s", payment.StatusMessage),
			Raw:           payment.Raw,
		}
	case statusPending:
		return Outcome{
			Kind:          OutcomePending,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Raw:           payment.Raw,
		}
	case statusUnknown:
		// An unrecognized status must never be silently settled.
		return Outcome{
			Kind:          OutcomeUnknownStatus,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Reason:        fmt.Sprintf("payment status unclear: %s (status: %s)", payment.StatusMessage, payment.TransactionStatus),
			Raw:           payment.Raw,
		}
	}

	return settle(ctx, payment, ledger, invoiceNumber, invoiceID)
}

func settle(ctx context.Context, payment *payment_types.PaymentQueryResult, ledger Ledger, invoiceNumber string, invoiceID string) Outcome {
	if invoiceNumber == "" {
		return Outcome{
			Kind:   OutcomeInvoiceNotFound,
			Reason: "could not determine invoice number from payer reference",
			Raw:    payment.Raw,
		}
	}
	if invoiceID == "" {
		return Outcome{
			Kind:          OutcomeInvoiceNotFound,
			InvoiceNumber: invoiceNumber,
			Reason:        fmt.Sprintf("invoice not found for number %s", invoiceNumber),
			Raw:           payment.Raw,
		}
	}

	invoice, err := ledger.GetInvoice(ctx, invoiceID)
	if err != nil || invoice == nil {
		return Outcome{
			Kind:          OutcomeFailed,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Reason:        "failed to fetch invoice data",
			Raw:           payment.Raw,
		}
	}

	// Repeated provider callbacks and webhook redeliveries land here;
	// an already settled invoice is not an error.
	if invoice.Status == entities.InvoicePaid {
		return Outcome{
			Kind:          OutcomeAlreadyPaid,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Raw:           payment.Raw,
		}
	}

	// Checkout charges due plus the gateway fee, so the paid amount is
	// held against the same fee-inclusive total.
	fee := utils.GatewayFee(invoice.TotalDue)
	expectedTotal := invoice.TotalDue.Add(fee)
	tolerance := expectedTotal.Mul(amountTolerancePercent)
	if payment.Amount.Sub(expectedTotal).Abs().GreaterThan(tolerance) {
		return Outcome{
			Kind:          OutcomeAmountMismatch,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			AmountPaid:    payment.Amount,
			AmountDue:     expectedTotal,
			Tolerance:     tolerance,
			Reason: fmt.Sprintf("amount mismatch: paid %s, expected %s (invoice %s)",
				payment.Amount.StringFixed(2), expectedTotal.StringFixed(2), invoiceNumber),
			Raw: payment.Raw,
		}
	}

	duplicate, err := ledger.HasTransaction(ctx, payment.TrxID, invoiceID)
	if err != nil {
		return Outcome{
			Kind:          OutcomeFailed,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			Reason:        "could not check for existing transaction",
			Raw:           payment.Raw,
		}
	}
	if duplicate {
		return Outcome{
			Kind:          OutcomeDuplicateTransaction,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			TrxID:         payment.TrxID,
			Reason:        fmt.Sprintf("transaction %s already recorded for this invoice", payment.TrxID),
			Raw:           payment.Raw,
		}
	}

	transactionID, err := ledger.RecordPayment(ctx, invoiceID, payment.TrxID, payment.Amount, fee)
	if err != nil {
		return Outcome{
			Kind:          OutcomeFailed,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			TrxID:         payment.TrxID,
			Reason:        "failed to record payment in the ledger",
			Raw:           payment.Raw,
		}
	}

	if err := ledger.MarkPaid(ctx, invoiceID); err != nil {
		logger.Error("could not mark invoice as paid", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "invoiceID",
			Data: invoiceID,
		})
	}

	// The write is reported but considered suspect until a read-back
	// confirms the status transition took effect.
	updated, err := ledger.GetInvoice(ctx, invoiceID)
	if err != nil || updated == nil || updated.Status != entities.InvoicePaid {
		return Outcome{
			Kind:          OutcomeSettlementVerificationFailed,
			InvoiceID:     invoiceID,
			InvoiceNumber: invoiceNumber,
			TrxID:         payment.TrxID,
			TransactionID: transactionID,
			Reason:        "invoice status update failed",
			Raw:           payment.Raw,
		}
	}

	return Outcome{
		Kind:          OutcomeSuccess,
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		TrxID:         payment.TrxID,
		TransactionID: transactionID,
		AmountPaid:    payment.Amount,
		AmountDue:     expectedTotal,
		Raw:           payment.Raw,
	}
}
