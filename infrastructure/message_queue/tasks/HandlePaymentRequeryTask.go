package queue_tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"prothompay.io/application/ledger"
	"prothompay.io/application/usecases/reconciliation"
	"prothompay.io/infrastructure/gatewaylog"
	"prothompay.io/infrastructure/logger"
	mq_types "prothompay.io/infrastructure/message_queue/types"
	"prothompay.io/infrastructure/payments"
)

var HandlePaymentRequeryTaskName mq_types.Queues = "requery_pending_payment"

type PaymentRequeryPayload struct {
	PaymentID string
}

func NewPaymentRequeryPayload(paymentID string) ([]byte, error) {
	return json.Marshal(PaymentRequeryPayload{PaymentID: paymentID})
}

// HandlePaymentRequeryTask re-runs query + reconcile for a payment that
// was still pending at callback time. Returning an error while the
// payment remains pending lets asynq reschedule the task until its
// retry budget runs out.
func HandlePaymentRequeryTask(ctx context.Context, t *asynq.Task) error {
	var payload PaymentRequeryPayload
	err := json.Unmarshal(t.Payload(), &payload)
	if err != nil {
		logger.Error("an error occured while unmarshalling payment requery payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}

	result, err := payments.PaymentProcessor.QueryPayment(ctx, payload.PaymentID)
	if err != nil {
		logger.Error("payment requery failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "paymentID",
			Data: payload.PaymentID,
		})
		return err
	}

	outcome := reconciliation.Reconcile(ctx, result, ledger.InvoiceLedger)
	gatewaylog.GatewayAuditLogger().Log("Requery reconciliation outcome", map[string]any{
		"paymentID": payload.PaymentID,
		"kind":      outcome.Kind,
		"invoiceID": outcome.InvoiceID,
		"trxID":     outcome.TrxID,
		"reason":    outcome.Reason,
	})

	if !outcome.Terminal() {
		return fmt.Errorf("payment %s still pending", payload.PaymentID)
	}
	return nil
}
