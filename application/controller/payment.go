package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "prothompay.io/application/appErrors"
	"prothompay.io/application/controller/dto"
	"prothompay.io/application/interfaces"
	"prothompay.io/application/ledger"
	"prothompay.io/application/repository"
	"prothompay.io/application/usecases/reconciliation"
	"prothompay.io/application/utils"
	"prothompay.io/entities"
	"prothompay.io/infrastructure/gatewaylog"
	"prothompay.io/infrastructure/logger"
	messagequeue "prothompay.io/infrastructure/message_queue"
	queue_tasks "prothompay.io/infrastructure/message_queue/tasks"
	mq_types "prothompay.io/infrastructure/message_queue/types"
	"prothompay.io/infrastructure/payments"
	payment_types "prothompay.io/infrastructure/payments/types"
	server_response "prothompay.io/infrastructure/serverResponse"
	"prothompay.io/infrastructure/validator"
)

var failureRedirectStatuses = []string{"failure", "failed", "cancel", "cancelled", "error"}

// ProcessGatewayCallback drives the whole reconciliation flow for one
// provider redirect or webhook delivery: validate the payment id, honor
// the redirect status fast path, query the authoritative status and
// hand the result to the reconciler.
func ProcessGatewayCallback(ctx *interfaces.ApplicationContext[dto.GatewayCallbackDTO]) {
	auditLog := gatewaylog.GatewayAuditLogger()
	paymentID := ctx.Body.PaymentID
	if paymentID == "" {
		auditLog.Log("Callback rejected", map[string]any{"error": "missing payment ID"})
		apperrors.ClientError(ctx.Ctx, "missing payment ID", nil, nil)
		return
	}

	auditLog.Log("Callback received", map[string]any{
		"paymentID": paymentID,
		"status":    ctx.Body.Status,
	})

	requestCtx := requestContext(ctx.Ctx)

	// The provider's redirect carries an explicit status on aborted
	// checkouts. It is authoritative for failure: no settlement logic
	// runs on this path, the provider is only queried to recover the
	// invoice for the redirect.
	urlStatus := strings.ToLower(ctx.Body.Status)
	if urlStatus != "" && utils.HasItemString(&failureRedirectStatuses, urlStatus) {
		auditLog.Log("Payment failed according to URL status", map[string]any{
			"paymentID":  paymentID,
			"url_status": urlStatus,
		})
		invoiceID := resolveInvoiceForRedirect(requestCtx, paymentID)
		if invoiceID == "" {
			apperrors.ClientError(ctx.Ctx, fmt.Sprintf("Payment failed: %s", urlStatus), nil, nil)
			return
		}
		redirectToInvoice(ctx.Ctx, invoiceID, "paymentfailed=true&message="+url.QueryEscape("Payment failed: "+urlStatus))
		return
	}

	result, err := finalizePayment(requestCtx, paymentID)
	if err != nil {
		auditLog.Log("Payment query failed", map[string]any{
			"paymentID": paymentID,
			"error":     err.Error(),
		})
		apperrors.ExternalDependencyError(ctx.Ctx, "bkash", "query", err)
		return
	}

	outcome := reconciliation.Reconcile(requestCtx, result, ledger.InvoiceLedger)
	auditLog.Log("Reconciliation outcome", map[string]any{
		"paymentID": paymentID,
		"kind":      outcome.Kind,
		"invoiceID": outcome.InvoiceID,
		"trxID":     outcome.TrxID,
		"reason":    outcome.Reason,
	})

	respondWithOutcome(ctx.Ctx, paymentID, outcome)
}

func respondWithOutcome(ctx interface{}, paymentID string, outcome reconciliation.Outcome) {
	switch outcome.Kind {
	case reconciliation.OutcomeSuccess:
		logger.Info("payment completed successfully", logger.LoggerOptions{
			Key:  "invoiceID",
			Data: outcome.InvoiceID,
		}, logger.LoggerOptions{
			Key:  "trxID",
			Data: outcome.TrxID,
		}, logger.LoggerOptions{
			Key:  "amountPaid",
			Data: outcome.AmountPaid.StringFixed(2),
		})
		redirectToInvoice(ctx, outcome.InvoiceID, "paymentsuccess=true")
	case reconciliation.OutcomeAlreadyPaid:
		redirectToInvoice(ctx, outcome.InvoiceID, "")
	case reconciliation.OutcomePending:
		enqueuePaymentRequery(paymentID)
		if outcome.InvoiceID != "" {
			redirectToInvoice(ctx, outcome.InvoiceID, "paymentpending=true")
			return
		}
		server_response.Responder.Respond(ctx, http.StatusAccepted, "Payment is still being processed. Please wait.", nil, nil, nil)
	case reconciliation.OutcomeCancelled:
		if outcome.InvoiceID != "" {
			redirectToInvoice(ctx, outcome.InvoiceID, "paymentcancelled=true")
			return
		}
		apperrors.ClientError(ctx, "Payment was cancelled. Please try again.", nil, nil)
	case reconciliation.OutcomeFailed, reconciliation.OutcomeAmountMismatch,
		reconciliation.OutcomeDuplicateTransaction, reconciliation.OutcomeInvoiceNotFound:
		if outcome.InvoiceID != "" {
			redirectToInvoice(ctx, outcome.InvoiceID, "paymentfailed=true&message="+url.QueryEscape(outcome.Reason))
			return
		}
		apperrors.ClientError(ctx, outcome.Reason, nil, nil)
	default:
		// UnknownStatus and SettlementVerificationFailed need operator
		// attention; neither may pass for a settled payment.
		apperrors.FatalServerError(ctx, fmt.Errorf("payment %s: %s", paymentID, outcome.Reason))
	}
}

// InitiateCheckout creates a bKash payment for an unpaid invoice and
// returns the provider URL the payer should be redirected to.
func InitiateCheckout(ctx *interfaces.ApplicationContext[dto.CheckoutDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(*ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	invoiceRepo := repository.InvoiceRepo()
	invoice, err := invoiceRepo.FindByID(ctx.Body.InvoiceID)
	if err != nil {
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}
	if invoice == nil {
		apperrors.NotFoundError(ctx.Ctx, "invoice not found")
		return
	}
	if invoice.Status == entities.InvoicePaid {
		apperrors.ClientError(ctx.Ctx, "invoice has already been paid", nil, nil)
		return
	}

	due, err := decimal.NewFromString(invoice.TotalDue)
	if err != nil {
		apperrors.FatalServerError(ctx.Ctx, err)
		return
	}
	total := due.Add(utils.GatewayFee(due))

	result, err := payments.PaymentProcessor.CreatePayment(requestContext(ctx.Ctx), invoice.Number, total, callbackURL())
	if err != nil {
		apperrors.ExternalDependencyError(ctx.Ctx, "bkash", "create", err)
		return
	}
	if result.RedirectURL == "" {
		apperrors.CustomError(ctx.Ctx, "failed to create payment", nil)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "payment created", map[string]any{
		"paymentID": result.PaymentID,
		"bkashURL":  result.RedirectURL,
	}, nil, nil)
}

// finalizePayment executes the payment the payer just returned from and
// falls back to a status query when execute cannot report a final
// status. Already-executed payments reject the execute call but still
// answer the query, so the fallback also covers webhook redeliveries.
func finalizePayment(ctx context.Context, paymentID string) (*payment_types.PaymentQueryResult, error) {
	result, err := payments.PaymentProcessor.ExecutePayment(ctx, paymentID)
	if err == nil && result.TransactionStatus != "" {
		return result, nil
	}
	if err != nil {
		gatewaylog.GatewayAuditLogger().Log("Execute failed, falling back to status query", map[string]any{
			"paymentID": paymentID,
			"error":     err.Error(),
		})
	} else {
		gatewaylog.GatewayAuditLogger().Log("Execute returned no status, falling back to status query", map[string]any{
			"paymentID": paymentID,
		})
	}
	return payments.PaymentProcessor.QueryPayment(ctx, paymentID)
}

// resolveInvoiceForRedirect queries the provider purely to recover the
// payer reference on the failure fast path. Any error degrades to "no
// invoice id available".
func resolveInvoiceForRedirect(ctx context.Context, paymentID string) string {
	result, err := payments.PaymentProcessor.QueryPayment(ctx, paymentID)
	if err != nil {
		gatewaylog.GatewayAuditLogger().Log("Could not retrieve invoice ID for failed payment", map[string]any{
			"paymentID": paymentID,
			"error":     err.Error(),
		})
		return ""
	}
	number := utils.ExtractInvoiceNumber(result.PayerReference)
	if number == "" {
		return ""
	}
	invoiceID, err := ledger.InvoiceLedger.FindInvoiceByNumber(ctx, number)
	if err != nil {
		return ""
	}
	return invoiceID
}

func enqueuePaymentRequery(paymentID string) {
	payload, err := queue_tasks.NewPaymentRequeryPayload(paymentID)
	if err != nil {
		logger.Error("could not build payment requery payload", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}
	messagequeue.TaskQueue.Enqueue(mq_types.QueueTask{
		Name:      queue_tasks.HandlePaymentRequeryTaskName,
		Payload:   payload,
		Priority:  mq_types.Low,
		ProcessIn: requeryDelay(),
		MaxRetry:  10,
	})
}

func requeryDelay() time.Duration {
	delay := os.Getenv("REQUERY_DELAY_SECONDS")
	if delay == "" {
		return 60
	}
	parsed, err := time.ParseDuration(delay + "s")
	if err != nil {
		return 60
	}
	return parsed / time.Second
}

func redirectToInvoice(ctx interface{}, invoiceID string, params string) {
	base := strings.TrimRight(os.Getenv("SYSTEM_URL"), "/")
	location := fmt.Sprintf("%s/viewinvoice.php?id=%s", base, invoiceID)
	if params != "" {
		location += "&" + params
	}
	server_response.Responder.Redirect(ctx, location)
}

func callbackURL() string {
	return strings.TrimRight(os.Getenv("CALLBACK_BASE_URL"), "/") + "/api/v1/callback/bkash"
}

func requestContext(ctx interface{}) context.Context {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.Request.Context()
	}
	return context.Background()
}
