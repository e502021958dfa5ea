package bkash_payment_processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"prothompay.io/infrastructure/logger"
)

const (
	// bKash tokens live an hour; refresh two minutes early.
	tokenTTL       = 3500 * time.Second
	maxAuthRetries = 3
	retryDelay     = 2 * time.Second

	invalidCredentialsMsg = "Invalid username and password combination"
)

// tokenSession owns the cached bearer token. Refresh is serialized so
// concurrent callers seeing an expired token do not race grant calls
// against the provider's rate-limited credential endpoint.
type tokenSession struct {
	mu       sync.Mutex
	value    string
	issuedAt time.Time
}

// getValidToken returns the cached token while it is inside its TTL and
// performs a fresh grant otherwise.
func (bkash *BkashPaymentProcessor) getValidToken(ctx context.Context) (string, error) {
	bkash.session.mu.Lock()
	defer bkash.session.mu.Unlock()

	if bkash.session.value != "" && time.Since(bkash.session.issuedAt) < tokenTTL {
		return bkash.session.value, nil
	}
	return bkash.grantToken(ctx)
}

// invalidate clears the cached token so the next call re-authenticates.
// Called whenever the provider answers 401 regardless of TTL.
func (bkash *BkashPaymentProcessor) invalidate() {
	bkash.session.mu.Lock()
	defer bkash.session.mu.Unlock()
	bkash.session.value = ""
}

// grantToken exchanges the app credentials for a bearer token, retrying
// transient failures a bounded number of times. Callers must hold
// session.mu.
func (bkash *BkashPaymentProcessor) grantToken(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAuthRetries; attempt++ {
		bkash.auditLog.Log("Authentication attempt", map[string]any{
			"attempt":  attempt,
			"username": redactCredential(bkash.credentials.Username),
		})

		token, err := bkash.requestGrant(ctx)
		if err == nil {
			bkash.session.value = token
			bkash.session.issuedAt = time.Now()
			bkash.auditLog.Log("Authentication successful", map[string]any{
				"expires_at": bkash.session.issuedAt.Add(tokenTTL).Format(time.RFC3339),
			})
			return token, nil
		}
		lastErr = err
		if errors.Is(err, ErrInvalidCredentials) {
			return "", err
		}
		logger.Error("bkash authentication attempt failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "attempt",
			Data: attempt,
		})
		if attempt < maxAuthRetries {
			if err := sleepWithContext(ctx, retryDelay); err != nil {
				return "", err
			}
		}
	}
	bkash.auditLog.Log("Authentication failed", map[string]any{
		"attempts": maxAuthRetries,
		"error":    lastErr.Error(),
	})
	return "", ErrAuthenticationExhausted
}

func (bkash *BkashPaymentProcessor) requestGrant(ctx context.Context) (string, error) {
	response, statusCode, err := bkash.Network.Post(ctx, "/checkout/token/grant", &map[string]string{
		"username": bkash.credentials.Username,
		"password": bkash.credentials.Password,
	}, map[string]any{
		"app_key":    bkash.credentials.AppKey,
		"app_secret": bkash.credentials.AppSecret,
	})
	if err != nil {
		return "", err
	}
	if *statusCode != 200 {
		return "", &TransportError{HTTPCode: *statusCode}
	}
	var grant tokenGrantResponse
	if err := json.Unmarshal(*response, &grant); err != nil {
		return "", ErrMalformedResponse
	}
	if grant.Msg == invalidCredentialsMsg {
		return "", ErrInvalidCredentials
	}
	if grant.IDToken == "" {
		return "", &ProviderError{StatusCode: grant.StatusCode, StatusMessage: grant.StatusMessage}
	}
	return grant.IDToken, nil
}

func redactCredential(value string) string {
	if len(value) <= 3 {
		return "..."
	}
	return value[:3] + "..."
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
