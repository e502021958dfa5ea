package payments

import (
	"os"

	"prothompay.io/infrastructure/gatewaylog"
	bkash_payment_processor "prothompay.io/infrastructure/payments/bkash"
	payment_types "prothompay.io/infrastructure/payments/types"
)

const (
	sandboxBaseURL = "https://tokenized.sandbox.bka.sh/v1.2.0-beta/tokenized"
	liveBaseURL    = "https://tokenized.pay.bka.sh/v1.2.0-beta/tokenized"
)

var PaymentProcessor payment_types.PaymentProcessor

func InitialisePaymentProcessor() {
	baseURL := os.Getenv("BKASH_BASE_URL")
	if baseURL == "" {
		if os.Getenv("BKASH_SANDBOX") == "on" {
			baseURL = sandboxBaseURL
		} else {
			baseURL = liveBaseURL
		}
	}
	PaymentProcessor = bkash_payment_processor.NewBkashPaymentProcessor(bkash_payment_processor.Credentials{
		Username:  os.Getenv("BKASH_USERNAME"),
		Password:  os.Getenv("BKASH_PASSWORD"),
		AppKey:    os.Getenv("BKASH_APP_KEY"),
		AppSecret: os.Getenv("BKASH_APP_SECRET"),
	}, baseURL, gatewaylog.GatewayAuditLogger())
}
