package bkash_payment_processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"prothompay.io/application/utils"
	"prothompay.io/infrastructure/gatewaylog"
	"prothompay.io/infrastructure/logger"
	"prothompay.io/infrastructure/network"
	payment_types "prothompay.io/infrastructure/payments/types"
)

const successStatusCode = "0000"

type BkashPaymentProcessor struct {
	Network *network.NetworkController

	credentials Credentials
	session     tokenSession
	auditLog    *gatewaylog.AuditLogger
}

func NewBkashPaymentProcessor(credentials Credentials, baseURL string, auditLog *gatewaylog.AuditLogger) *BkashPaymentProcessor {
	return &BkashPaymentProcessor{
		Network: &network.NetworkController{
			BaseUrl: strings.TrimRight(baseURL, "/"),
		},
		credentials: Credentials{
			Username:  utils.SanitizeCredential(credentials.Username),
			Password:  utils.SanitizeCredential(credentials.Password),
			AppKey:    strings.TrimSpace(credentials.AppKey),
			AppSecret: strings.TrimSpace(credentials.AppSecret),
		},
		auditLog: auditLog,
	}
}

func (bkash *BkashPaymentProcessor) CreatePayment(ctx context.Context, invoiceNumber string, amount decimal.Decimal, callbackURL string) (*payment_types.PaymentCreateResult, error) {
	result, err := bkash.makeAuthenticatedRequest(ctx, "/checkout/create", map[string]any{
		"mode":                  "0011",
		"payerReference":        "INV" + invoiceNumber,
		"callbackURL":           callbackURL,
		"amount":                amount.StringFixed(2),
		"currency":              "BDT",
		"intent":                "sale",
		"merchantInvoiceNumber": invoiceNumber,
	}, false)
	if err != nil {
		return nil, err
	}
	return &payment_types.PaymentCreateResult{
		PaymentID:   stringField(result, "paymentID"),
		RedirectURL: stringField(result, "bkashURL"),
		Raw:         result,
	}, nil
}

func (bkash *BkashPaymentProcessor) ExecutePayment(ctx context.Context, paymentID string) (*payment_types.PaymentQueryResult, error) {
	result, err := bkash.makeAuthenticatedRequest(ctx, "/checkout/execute", map[string]any{
		"paymentID": paymentID,
	}, false)
	if err != nil {
		return nil, err
	}
	return bkash.parseQueryResult(paymentID, result, false)
}

// QueryPayment is the call money movement decisions hang on, so it is
// treated as critical and retried once.
func (bkash *BkashPaymentProcessor) QueryPayment(ctx context.Context, paymentID string) (*payment_types.PaymentQueryResult, error) {
	result, err := bkash.makeAuthenticatedRequest(ctx, "/checkout/payment/status", map[string]any{
		"paymentID": paymentID,
	}, true)
	if err != nil {
		return nil, err
	}
	return bkash.parseQueryResult(paymentID, result, true)
}

func (bkash *BkashPaymentProcessor) parseQueryResult(paymentID string, result map[string]any, strict bool) (*payment_types.PaymentQueryResult, error) {
	transactionStatus := stringField(result, "transactionStatus")
	trxID := stringField(result, "trxID")

	if strict && transactionStatus == "" {
		return nil, ErrMissingTransactionStatus
	}
	// Completed payments must carry the provider transaction id; an id is
	// never synthesized.
	if transactionStatus == "Completed" && trxID == "" {
		return nil, ErrIncompleteCompletedPayment
	}
	if trxID == "" && transactionStatus != "Completed" {
		bkash.auditLog.Log("No trxID for non-completed payment", map[string]any{
			"paymentID": paymentID,
			"status":    transactionStatus,
		})
	}

	return &payment_types.PaymentQueryResult{
		TransactionStatus: transactionStatus,
		StatusMessage:     stringField(result, "statusMessage"),
		TrxID:             trxID,
		Amount:            decimalField(result, "amount"),
		PayerReference:    stringField(result, "payerReference"),
		Raw:               result,
	}, nil
}

func (bkash *BkashPaymentProcessor) makeAuthenticatedRequest(ctx context.Context, endpoint string, body map[string]any, critical bool) (map[string]any, error) {
	maxAttempts := 1
	if critical {
		maxAttempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		token, err := bkash.getValidToken(ctx)
		if err != nil {
			return nil, err
		}

		result, err := bkash.makeApiCall(ctx, endpoint, body, token)
		if err == nil {
			return result, nil
		}
		lastErr = err

		bkash.auditLog.Log("API attempt failed", map[string]any{
			"endpoint": endpoint,
			"attempt":  fmt.Sprintf("%d/%d", attempt, maxAttempts),
			"error":    err.Error(),
		})

		if transportErr, ok := err.(*TransportError); ok && transportErr.HTTPCode == 401 {
			bkash.invalidate()
		}
		if attempt < maxAttempts {
			if err := sleepWithContext(ctx, retryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (bkash *BkashPaymentProcessor) makeApiCall(ctx context.Context, endpoint string, body map[string]any, token string) (map[string]any, error) {
	bkash.auditLog.Log("API Request", map[string]any{
		"endpoint": endpoint,
		"data":     body,
	})

	response, statusCode, err := bkash.Network.Post(ctx, endpoint, &map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
		"x-app-key":     bkash.credentials.AppKey,
	}, body)
	if err != nil {
		logger.Error("network error while calling bkash", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "endpoint",
			Data: endpoint,
		})
		return nil, err
	}

	var result map[string]any
	decodeErr := json.Unmarshal(*response, &result)

	bkash.auditLog.Log("API Response", map[string]any{
		"endpoint":  endpoint,
		"http_code": *statusCode,
		"response":  result,
	})

	if *statusCode != 200 {
		return nil, &TransportError{HTTPCode: *statusCode}
	}
	if decodeErr != nil {
		return nil, ErrMalformedResponse
	}
	if code := stringField(result, "statusCode"); code != "" && code != successStatusCode {
		return nil, &ProviderError{StatusCode: code, StatusMessage: stringField(result, "statusMessage")}
	}
	return result, nil
}

func stringField(payload map[string]any, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

func decimalField(payload map[string]any, key string) decimal.Decimal {
	switch value := payload[key].(type) {
	case string:
		parsed, err := decimal.NewFromString(value)
		if err == nil {
			return parsed
		}
	case float64:
		return decimal.NewFromFloat(value)
	}
	return decimal.Zero
}
