package bkash_payment_processor

import (
	"errors"
	"fmt"
)

type Credentials struct {
	Username  string
	Password  string
	AppKey    string
	AppSecret string
}

// TransportError is a network or HTTP level failure. 401s invalidate the
// cached token before a critical call is retried.
type TransportError struct {
	HTTPCode int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bkash api returned HTTP %d", e.HTTPCode)
}

// ProviderError means bKash accepted the request but rejected it with a
// non-success statusCode.
type ProviderError struct {
	StatusCode    string
	StatusMessage string
}

func (e *ProviderError) Error() string {
	if e.StatusMessage == "" {
		return "payment processing failed"
	}
	return e.StatusMessage
}

var (
	ErrMalformedResponse          = errors.New("could not decode bkash response body")
	ErrInvalidCredentials         = errors.New("bkash rejected the configured api credentials")
	ErrAuthenticationExhausted    = errors.New("maximum authentication attempts reached")
	ErrMissingTransactionStatus   = errors.New("bkash response missing transaction status")
	ErrIncompleteCompletedPayment = errors.New("completed payment missing transaction id")
)

type tokenGrantResponse struct {
	IDToken       string `json:"id_token"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int64  `json:"expires_in"`
	Msg           string `json:"msg"`
	Message       string `json:"message"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}
