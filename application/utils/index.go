package utils

import (
	"html"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

func GenerateUULDString() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

func GetStringPointer(text string) *string {
	return &text
}

func GetBooleanPointer(data bool) *bool {
	return &data
}

func GetUIntPointer(data uint) *uint {
	return &data
}

var percentEscapeRegex = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)

// SanitizeCredential undoes the damage config UIs inflict on stored
// credentials: surrounding whitespace, percent-encoding and HTML
// entities.
func SanitizeCredential(value string) string {
	value = strings.TrimSpace(value)
	if percentEscapeRegex.MatchString(value) {
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
	}
	return html.UnescapeString(value)
}

var nonDigitRegex = regexp.MustCompile(`[^0-9]`)

// ExtractInvoiceNumber derives an invoice number from a provider payer
// reference such as "INV00042". Returns an empty string when nothing
// numeric remains.
func ExtractInvoiceNumber(payerReference string) string {
	number := strings.ReplaceAll(payerReference, "INV", "")
	number = nonDigitRegex.ReplaceAllString(number, "")
	return strings.TrimLeft(number, "0")
}

// GatewayFee is the surcharge added on top of an invoice's due amount
// at checkout. Settlement validates against the same fee-inclusive
// total, so both sides must compute it here.
func GatewayFee(due decimal.Decimal) decimal.Decimal {
	percent := os.Getenv("GATEWAY_FEE_PERCENT")
	if percent == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(percent)
	if err != nil {
		return decimal.Zero
	}
	return due.Mul(parsed).Div(decimal.NewFromInt(100))
}

func HasItemString(arr *[]string, target string) bool {
	for _, v := range *arr {
		if v == target {
			return true
		}
	}
	return false
}
