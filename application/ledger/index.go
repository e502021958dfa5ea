package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"prothompay.io/application/repository"
	"prothompay.io/application/usecases/reconciliation"
	"prothompay.io/entities"
	"prothompay.io/infrastructure/database/repository/cache"
	"prothompay.io/infrastructure/logger"
)

// mongoLedger implements the reconciler's Ledger port on top of the
// invoice and gateway-transaction collections, with a redis index as
// the first hop of number-to-id resolution.
type mongoLedger struct{}

var InvoiceLedger reconciliation.Ledger = &mongoLedger{}

const invoiceNumberIndexTTL = 24 * time.Hour

func invoiceNumberKey(number string) string {
	return fmt.Sprintf("invoice-number-%s", number)
}

func (ledger *mongoLedger) FindInvoiceByNumber(ctx context.Context, number string) (string, error) {
	if cached := cache.Cache.FindOne(invoiceNumberKey(number)); cached != nil {
		return *cached, nil
	}

	invoiceRepo := repository.InvoiceRepo()
	invoice, err := invoiceRepo.FindOneByFilter(map[string]interface{}{
		"number": number,
	})
	if err != nil {
		return "", err
	}
	if invoice == nil {
		return "", nil
	}
	cache.Cache.CreateEntry(invoiceNumberKey(number), invoice.ID, invoiceNumberIndexTTL)
	return invoice.ID, nil
}

func (ledger *mongoLedger) GetInvoice(ctx context.Context, invoiceID string) (*reconciliation.InvoiceRecord, error) {
	invoiceRepo := repository.InvoiceRepo()
	invoice, err := invoiceRepo.FindByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, nil
	}
	totalDue, err := decimal.NewFromString(invoice.TotalDue)
	if err != nil {
		logger.Error("invoice carries an unparseable total", logger.LoggerOptions{
			Key:  "invoiceID",
			Data: invoice.ID,
		}, logger.LoggerOptions{
			Key:  "totalDue",
			Data: invoice.TotalDue,
		})
		return nil, err
	}
	return &reconciliation.InvoiceRecord{
		ID:       invoice.ID,
		Number:   invoice.Number,
		Status:   invoice.Status,
		TotalDue: totalDue,
	}, nil
}

func (ledger *mongoLedger) RecordPayment(ctx context.Context, invoiceID string, trxID string, amount decimal.Decimal, fee decimal.Decimal) (string, error) {
	transactionRepo := repository.TransactionRepo()
	created, err := transactionRepo.CreateOne(ctx, entities.GatewayTransaction{
		InvoiceID: invoiceID,
		TrxID:     trxID,
		Gateway:   "bkash",
		Amount:    amount.StringFixed(2),
		Fees:      fee.StringFixed(2),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// MarkPaid only transitions Unpaid invoices, so a racing second
// settlement attempt becomes a no-op rather than a double write.
func (ledger *mongoLedger) MarkPaid(ctx context.Context, invoiceID string) error {
	invoiceRepo := repository.InvoiceRepo()
	now := time.Now()
	_, err := invoiceRepo.UpdatePartialByFilter(map[string]interface{}{
		"_id":    invoiceID,
		"status": entities.InvoiceUnpaid,
	}, map[string]any{
		"status": entities.InvoicePaid,
		"paidAt": now,
	})
	return err
}

func (ledger *mongoLedger) HasTransaction(ctx context.Context, trxID string, invoiceID string) (bool, error) {
	transactionRepo := repository.TransactionRepo()
	count, err := transactionRepo.CountDocs(map[string]interface{}{
		"trxID":     trxID,
		"invoiceID": invoiceID,
	})
	if err != nil {
		return false, err
	}
	return count != 0, nil
}
