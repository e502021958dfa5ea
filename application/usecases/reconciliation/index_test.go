package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"prothompay.io/entities"
	"prothompay.io/infrastructure/logger"
	payment_types "prothompay.io/infrastructure/payments/types"
)

func TestMain(m *testing.M) {
	logger.InitializeLogger()
	m.Run()
}

type fakeLedger struct {
	numberIndex  map[string]string
	invoices     map[string]*InvoiceRecord
	transactions map[string]bool

	markPaidFails bool
	lookupErr     error

	recordCalls   int
	markPaidCalls int
	lastFee       decimal.Decimal
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		numberIndex:  map[string]string{},
		invoices:     map[string]*InvoiceRecord{},
		transactions: map[string]bool{},
	}
}

func (fl *fakeLedger) addInvoice(id string, number string, status entities.InvoiceStatus, due string) {
	fl.numberIndex[number] = id
	totalDue, _ := decimal.NewFromString(due)
	fl.invoices[id] = &InvoiceRecord{ID: id, Number: number, Status: status, TotalDue: totalDue}
}

func (fl *fakeLedger) FindInvoiceByNumber(ctx context.Context, number string) (string, error) {
	if fl.lookupErr != nil {
		return "", fl.lookupErr
	}
	return fl.numberIndex[number], nil
}

func (fl *fakeLedger) GetInvoice(ctx context.Context, invoiceID string) (*InvoiceRecord, error) {
	return fl.invoices[invoiceID], nil
}

func (fl *fakeLedger) RecordPayment(ctx context.Context, invoiceID string, trxID string, amount decimal.Decimal, fee decimal.Decimal) (string, error) {
	fl.recordCalls++
	fl.lastFee = fee
	fl.transactions[trxID+"|"+invoiceID] = true
	return "ledger-trx-1", nil
}

func (fl *fakeLedger) MarkPaid(ctx context.Context, invoiceID string) error {
	fl.markPaidCalls++
	if fl.markPaidFails {
		return nil
	}
	fl.invoices[invoiceID].Status = entities.InvoicePaid
	return nil
}

func (fl *fakeLedger) HasTransaction(ctx context.Context, trxID string, invoiceID string) (bool, error) {
	return fl.transactions[trxID+"|"+invoiceID], nil
}

func queryResult(transactionStatus string, statusMessage string, trxID string, amount string, payerReference string) *payment_types.PaymentQueryResult {
	parsed, _ := decimal.NewFromString(amount)
	return &payment_types.PaymentQueryResult{
		TransactionStatus: transactionStatus,
		StatusMessage:     statusMessage,
		TrxID:             trxID,
		Amount:            parsed,
		PayerReference:    payerReference,
		Raw:               map[string]any{},
	}
}

func TestClassifyStatusPrecedence(t *testing.T) {
	tests := []struct {
		name              string
		transactionStatus string
		statusMessage     string
		want              paymentStatus
	}{
		{"successful message wins over pending status", "Pending", "Successful", statusSuccessful},
		{"completed status is success", "Completed", "", statusSuccessful},
		{"cancelled status", "Cancelled", "", statusCancelled},
		{"cancel message", "", "Cancel", statusCancelled},
		{"cancelled message wins over failed status", "Failed", "Cancelled", statusCancelled},
		{"failed status", "Failed", "", statusFailed},
		{"reversed status", "Reversed", "", statusFailed},
		{"failure message", "", "Failure", statusFailed},
		{"initiated status", "Initiated", "", statusPending},
		{"authorized status", "Authorized", "", statusPending},
		{"in progress message", "", "In Progress", statusPending},
		{"unrecognized pair", "Frobnicated", "Whatever", statusUnknown},
		{"empty pair", "", "", statusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStatus(tt.transactionStatus, tt.statusMessage); got != tt.want {
				t.Errorf("classifyStatus(%q, %q) = %v, want %v", tt.transactionStatus, tt.statusMessage, got, tt.want)
			}
		})
	}
}

func TestReconcileEndToEndSuccess(t *testing.T) {
	fl := newFakeLedger()
	fl.addInvoice("77", "77", entities.InvoiceUnpaid, "500.00")

	payment := queryResult("Completed", "Successful", "BKS123", "500.00", "INV77")
	outcome := Reconcile(context.Background(), payment, fl)

	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s (%s)", outcome.Kind, outcome.Reason)
	}
	if outcome.InvoiceID != "77" || outcome.TrxID != "BKS123" {
		t.Errorf("unexpected outcome identifiers: %+v", outcome)
	}
	if !outcome.AmountPaid.Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("unexpected amount paid: %s", outcome.AmountPaid)
	}
	if fl.recordCalls != 1 {
		t.Errorf("expected exactly one RecordPayment call, got %d", fl.recordCalls)
	}
	if fl.markPaidCalls != 1 {
		t.Errorf("expected exactly one MarkPaid call, got %d", fl.markPaidCalls)
	}
}

func TestReconcileIdempotentUnderRedelivery(t *testing.T) {
	fl := newFakeLedger()
	fl.addInvoice("77", "77", entities.InvoiceUnpaid, "500.00")
	payment := queryResult("Completed", "Successful", "BKS123", "500.00", "INV77")

	first := Reconcile(context.Background(), payment, fl)
	if first.Kind != OutcomeSuccess {
		t.Fatalf("first reconciliation should succeed, got %s", first.Kind)
	}

	second := Reconcile(context.Background(), payment, fl)
	if second.Kind != OutcomeAlreadyPaid {
		t.Fatalf("second reconciliation should be already paid, got %s", second.Kind)
	}
	third := Reconcile(context.Background(), payment, fl)
	if third.Kind != OutcomeAlreadyPaid {
		t.Fatalf("third reconciliation should be already paid, got %s", third.Kind)
	}
	if fl.recordCalls != 1 {
		t.Errorf("ledger should hold exactly one payment record, got %d", fl.recordCalls)
	}
}

func TestReconcileAmountTolerance(t *testing.T) {
	tests := []struct {
		name string
		paid string
		want OutcomeKind
	}{
		{"exact amount", "1000.00", OutcomeSuccess},
		{"within two percent", "980.01", OutcomeSuccess},
		{"exactly at tolerance boundary", "980.00", OutcomeSuccess},
		{"overpaid within tolerance", "1019.99", OutcomeSuccess},
		{"well below tolerance", "975.00", OutcomeAmountMismatch},
		{"overpaid beyond tolerance", "1025.00", OutcomeAmountMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := newFakeLedger()
			fl.addInvoice("9", "9", entities.InvoiceUnpaid, "1000.00")
			payment := queryResult("Completed", "Successful", "TRX9", tt.paid, "INV9")

			outcome := Reconcile(context.Background(), payment, fl)
			if outcome.Kind != tt.want {
				t.Errorf("paid %s: got %s, want %s", tt.paid, outcome.Kind, tt.want)
			}
			if tt.want == OutcomeAmountMismatch {
				if !outcome.Tolerance.Equal(decimal.RequireFromString("20.00")) {
					t.Errorf("tolerance should be 20.00, got %s", outcome.Tolerance)
				}
				if fl.recordCalls != 0 {
					t.Errorf("no payment may be recorded on mismatch")
				}
			}
		})
	}
}

func TestReconcileFeeInclusiveTotal(t *testing.T) {
	t.Setenv("GATEWAY_FEE_PERCENT", "3")

	t.Run("payment of the fee-inclusive total settles", func(t *testing.T) {
		fl := newFakeLedger()
		fl.addInvoice("77", "77", entities.InvoiceUnpaid, "1000.00")
		payment := queryResult("Completed", "Successful", "TRX77", "1030.00", "INV77")

		outcome := Reconcile(context.Background(), payment, fl)
		if outcome.Kind != OutcomeSuccess {
			t.Fatalf("exactly what checkout charges must settle, got %s (%s)", outcome.Kind, outcome.Reason)
		}
		if !outcome.AmountDue.Equal(decimal.RequireFromString("1030.00")) {
			t.Errorf("expected total should include the fee, got %s", outcome.AmountDue)
		}
		if !fl.lastFee.Equal(decimal.RequireFromString("30.00")) {
			t.Errorf("the fee should be recorded with the transaction, got %s", fl.lastFee)
		}
	})

	t.Run("bare due amount falls outside tolerance of the total", func(t *testing.T) {
		fl := newFakeLedger()
		fl.addInvoice("77", "77", entities.InvoiceUnpaid, "1000.00")
		payment := queryResult("Completed", "Successful", "TRX77", "1000.00", "INV77")

		outcome := Reconcile(context.Background(), payment, fl)
		if outcome.Kind != OutcomeAmountMismatch {
			t.Fatalf("underpaying the fee should mismatch, got %s", outcome.Kind)
		}
		if !outcome.Tolerance.Equal(decimal.RequireFromString("20.60")) {
			t.Errorf("tolerance should be computed on the fee-inclusive total, got %s", outcome.Tolerance)
		}
	})
}

func TestReconcileDuplicateTransaction(t *testing.T) {
	fl := newFakeLedger()
	fl.addInvoice("12", "12", entities.InvoiceUnpaid, "250.00")
	fl.transactions["DUPTRX|12"] = true

	payment := queryResult("Completed", "Successful", "DUPTRX", "250.00", "INV12")
	outcome := Reconcile(context.Background(), payment, fl)

	if outcome.Kind != OutcomeDuplicateTransaction {
		t.Fatalf("expected duplicate transaction, got %s", outcome.Kind)
	}
	if fl.recordCalls != 0 {
		t.Errorf("duplicate must not be re-credited")
	}
}

func TestReconcileSettlementVerificationFailed(t *testing.T) {
	fl := newFakeLedger()
	fl.addInvoice("13", "13", entities.InvoiceUnpaid, "100.00")
	fl.markPaidFails = true

	payment := queryResult("Completed", "Successful", "TRX13", "100.00", "INV13")
	outcome := Reconcile(context.Background(), payment, fl)

	if outcome.Kind != OutcomeSettlementVerificationFailed {
		t.Fatalf("expected settlement verification failure, got %s", outcome.Kind)
	}
	if outcome.TransactionID == "" {
		t.Errorf("the recorded transaction id should be surfaced for operator follow-up")
	}
}

func TestReconcileInvoiceResolution(t *testing.T) {
	t.Run("garbage payer reference", func(t *testing.T) {
		fl := newFakeLedger()
		payment := queryResult("Completed", "Successful", "TRX1", "10.00", "garbage")
		outcome := Reconcile(context.Background(), payment, fl)
		if outcome.Kind != OutcomeInvoiceNotFound {
			t.Fatalf("expected invoice not found, got %s", outcome.Kind)
		}
		if outcome.InvoiceNumber != "" {
			t.Errorf("no number should be reported, got %q", outcome.InvoiceNumber)
		}
	})

	t.Run("unknown invoice number", func(t *testing.T) {
		fl := newFakeLedger()
		payment := queryResult("Completed", "Successful", "TRX1", "10.00", "INV404")
		outcome := Reconcile(context.Background(), payment, fl)
		if outcome.Kind != OutcomeInvoiceNotFound {
			t.Fatalf("expected invoice not found, got %s", outcome.Kind)
		}
		if outcome.InvoiceNumber != "404" {
			t.Errorf("number should be surfaced, got %q", outcome.InvoiceNumber)
		}
	})

	t.Run("failing status still resolves invoice for redirect", func(t *testing.T) {
		fl := newFakeLedger()
		fl.addInvoice("55", "55", entities.InvoiceUnpaid, "80.00")
		payment := queryResult("Failed", "", "", "0", "INV55")
		outcome := Reconcile(context.Background(), payment, fl)
		if outcome.Kind != OutcomeFailed {
			t.Fatalf("expected failed, got %s", outcome.Kind)
		}
		if outcome.InvoiceID != "55" {
			t.Errorf("invoice id should be resolved on failing statuses, got %q", outcome.InvoiceID)
		}
	})

	t.Run("resolution error on failing status degrades to empty id", func(t *testing.T) {
		fl := newFakeLedger()
		fl.lookupErr = errors.New("ledger offline")
		payment := queryResult("Cancelled", "", "", "0", "INV55")
		outcome := Reconcile(context.Background(), payment, fl)
		if outcome.Kind != OutcomeCancelled {
			t.Fatalf("expected cancelled, got %s", outcome.Kind)
		}
		if outcome.InvoiceID != "" {
			t.Errorf("invoice id should be empty when resolution fails, got %q", outcome.InvoiceID)
		}
	})
}

func TestReconcileUnknownStatusNeverSettles(t *testing.T) {
	fl := newFakeLedger()
	fl.addInvoice("88", "88", entities.InvoiceUnpaid, "40.00")

	payment := queryResult("Mystery", "Odd", "TRX88", "40.00", "INV88")
	outcome := Reconcile(context.Background(), payment, fl)

	if outcome.Kind != OutcomeUnknownStatus {
		t.Fatalf("expected unknown status, got %s", outcome.Kind)
	}
	if fl.recordCalls != 0 || fl.markPaidCalls != 0 {
		t.Errorf("an unrecognized status must never be settled")
	}
}

func TestOutcomeTerminal(t *testing.T) {
	if (Outcome{Kind: OutcomePending}).Terminal() {
		t.Errorf("pending outcomes are not terminal")
	}
	for _, kind := range []OutcomeKind{OutcomeSuccess, OutcomeAlreadyPaid, OutcomeCancelled, OutcomeFailed, OutcomeUnknownStatus} {
		if !(Outcome{Kind: kind}).Terminal() {
			t.Errorf("%s should be terminal", kind)
		}
	}
}
