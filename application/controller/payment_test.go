package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"prothompay.io/application/controller/dto"
	"prothompay.io/application/interfaces"
	"prothompay.io/application/ledger"
	"prothompay.io/application/usecases/reconciliation"
	"prothompay.io/entities"
	"prothompay.io/infrastructure/logger"
	"prothompay.io/infrastructure/payments"
	payment_types "prothompay.io/infrastructure/payments/types"
)

func TestMain(m *testing.M) {
	os.Setenv("GATEWAY_AUDIT_LOG", "off")
	gin.SetMode(gin.TestMode)
	logger.InitializeLogger()
	m.Run()
}

type stubProcessor struct {
	executeResult *payment_types.PaymentQueryResult
	executeErr    error
	queryResult   *payment_types.PaymentQueryResult
	queryErr      error

	createCalls  int
	executeCalls int
	queryCalls   int
}

func (sp *stubProcessor) CreatePayment(ctx context.Context, invoiceNumber string, amount decimal.Decimal, callbackURL string) (*payment_types.PaymentCreateResult, error) {
	sp.createCalls++
	return &payment_types.PaymentCreateResult{PaymentID: "TR0001", RedirectURL: "https://bkash.example/pay/TR0001"}, nil
}

func (sp *stubProcessor) ExecutePayment(ctx context.Context, paymentID string) (*payment_types.PaymentQueryResult, error) {
	sp.executeCalls++
	return sp.executeResult, sp.executeErr
}

func (sp *stubProcessor) QueryPayment(ctx context.Context, paymentID string) (*payment_types.PaymentQueryResult, error) {
	sp.queryCalls++
	return sp.queryResult, sp.queryErr
}

type stubLedger struct {
	numberIndex map[string]string
	invoices    map[string]*reconciliation.InvoiceRecord
	recordCalls int
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		numberIndex: map[string]string{},
		invoices:    map[string]*reconciliation.InvoiceRecord{},
	}
}

func (sl *stubLedger) addInvoice(id string, number string, status entities.InvoiceStatus, due string) {
	sl.numberIndex[number] = id
	totalDue, _ := decimal.NewFromString(due)
	sl.invoices[id] = &reconciliation.InvoiceRecord{ID: id, Number: number, Status: status, TotalDue: totalDue}
}

func (sl *stubLedger) FindInvoiceByNumber(ctx context.Context, number string) (string, error) {
	return sl.numberIndex[number], nil
}

func (sl *stubLedger) GetInvoice(ctx context.Context, invoiceID string) (*reconciliation.InvoiceRecord, error) {
	return sl.invoices[invoiceID], nil
}

func (sl *stubLedger) RecordPayment(ctx context.Context, invoiceID string, trxID string, amount decimal.Decimal, fee decimal.Decimal) (string, error) {
	sl.recordCalls++
	return "ledger-trx-1", nil
}

func (sl *stubLedger) MarkPaid(ctx context.Context, invoiceID string) error {
	sl.invoices[invoiceID].Status = entities.InvoicePaid
	return nil
}

func (sl *stubLedger) HasTransaction(ctx context.Context, trxID string, invoiceID string) (bool, error) {
	return false, nil
}

func swapProcessor(t *testing.T, stub payment_types.PaymentProcessor) {
	t.Helper()
	previous := payments.PaymentProcessor
	payments.PaymentProcessor = stub
	t.Cleanup(func() { payments.PaymentProcessor = previous })
}

func swapLedger(t *testing.T, stub reconciliation.Ledger) {
	t.Helper()
	previous := ledger.InvoiceLedger
	ledger.InvoiceLedger = stub
	t.Cleanup(func() { ledger.InvoiceLedger = previous })
}

func runCallback(t *testing.T, body dto.GatewayCallbackDTO) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	ginCtx, _ := gin.CreateTestContext(recorder)
	ginCtx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/callback/bkash", nil)
	ProcessGatewayCallback(&interfaces.ApplicationContext[dto.GatewayCallbackDTO]{
		Ctx:    ginCtx,
		Body:   &body,
		Header: ginCtx.Request.Header,
	})
	return recorder
}

func completedPayment(payerReference string, amount string) *payment_types.PaymentQueryResult {
	parsed, _ := decimal.NewFromString(amount)
	return &payment_types.PaymentQueryResult{
		TransactionStatus: "Completed",
		StatusMessage:     "Successful",
		TrxID:             "BKS123",
		Amount:            parsed,
		PayerReference:    payerReference,
		Raw:               map[string]any{},
	}
}

func TestCallbackRejectsMissingPaymentID(t *testing.T) {
	stub := &stubProcessor{}
	swapProcessor(t, stub)

	recorder := runCallback(t, dto.GatewayCallbackDTO{})

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if stub.executeCalls != 0 || stub.queryCalls != 0 {
		t.Errorf("no provider call may happen without a payment id")
	}
}

func TestCallbackRedirectStatusFastPath(t *testing.T) {
	t.Setenv("SYSTEM_URL", "https://billing.example")
	stub := &stubProcessor{queryResult: completedPayment("INV77", "500.00")}
	swapProcessor(t, stub)
	sl := newStubLedger()
	sl.addInvoice("77", "77", entities.InvoiceUnpaid, "500.00")
	swapLedger(t, sl)

	recorder := runCallback(t, dto.GatewayCallbackDTO{PaymentID: "TR0001", Status: "failure"})

	if recorder.Code != http.StatusFound {
		t.Fatalf("expected a redirect, got %d", recorder.Code)
	}
	location := recorder.Header().Get("Location")
	if !strings.Contains(location, "viewinvoice.php?id=77") || !strings.Contains(location, "paymentfailed=true") {
		t.Errorf("unexpected redirect target: %s", location)
	}
	if stub.executeCalls != 0 {
		t.Errorf("the failure fast path must not execute the payment")
	}
	if sl.recordCalls != 0 {
		t.Errorf("the failure fast path must not settle anything")
	}
}

func TestCallbackExecuteReportsFinalStatus(t *testing.T) {
	t.Setenv("SYSTEM_URL", "https://billing.example")
	stub := &stubProcessor{executeResult: completedPayment("INV77", "500.00")}
	swapProcessor(t, stub)
	sl := newStubLedger()
	sl.addInvoice("77", "77", entities.InvoiceUnpaid, "500.00")
	swapLedger(t, sl)

	recorder := runCallback(t, dto.GatewayCallbackDTO{PaymentID: "TR0001"})

	if recorder.Code != http.StatusFound {
		t.Fatalf("expected a redirect, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Header().Get("Location"), "paymentsuccess=true") {
		t.Errorf("unexpected redirect target: %s", recorder.Header().Get("Location"))
	}
	if stub.executeCalls != 1 || stub.queryCalls != 0 {
		t.Errorf("a conclusive execute needs no status query, got execute=%d query=%d", stub.executeCalls, stub.queryCalls)
	}
	if sl.recordCalls != 1 {
		t.Errorf("expected exactly one recorded payment, got %d", sl.recordCalls)
	}
}

func TestCallbackFallsBackToQueryAfterExecute(t *testing.T) {
	t.Setenv("SYSTEM_URL", "https://billing.example")
	tests := []struct {
		name string
		stub *stubProcessor
	}{
		{
			name: "execute returns no status",
			stub: &stubProcessor{
				executeResult: &payment_types.PaymentQueryResult{Raw: map[string]any{}},
				queryResult:   completedPayment("INV77", "500.00"),
			},
		},
		{
			name: "execute rejected for an already executed payment",
			stub: &stubProcessor{
				executeErr:  errors.New("payment already completed"),
				queryResult: completedPayment("INV77", "500.00"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swapProcessor(t, tt.stub)
			sl := newStubLedger()
			sl.addInvoice("77", "77", entities.InvoiceUnpaid, "500.00")
			swapLedger(t, sl)

			recorder := runCallback(t, dto.GatewayCallbackDTO{PaymentID: "TR0001"})

			if recorder.Code != http.StatusFound {
				t.Fatalf("expected a redirect, got %d", recorder.Code)
			}
			if !strings.Contains(recorder.Header().Get("Location"), "paymentsuccess=true") {
				t.Errorf("unexpected redirect target: %s", recorder.Header().Get("Location"))
			}
			if tt.stub.executeCalls != 1 || tt.stub.queryCalls != 1 {
				t.Errorf("expected execute then query, got execute=%d query=%d", tt.stub.executeCalls, tt.stub.queryCalls)
			}
			if sl.recordCalls != 1 {
				t.Errorf("expected exactly one recorded payment, got %d", sl.recordCalls)
			}
		})
	}
}
