package utils

import "testing"

func TestSanitizeCredential(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain value untouched",
			input: "merchant01",
			want:  "merchant01",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  merchant01\n",
			want:  "merchant01",
		},
		{
			name:  "percent encoded value decoded",
			input: "p%40ssword",
			want:  "p@ssword",
		},
		{
			name:  "html entities decoded",
			input: "p&amp;word",
			want:  "p&word",
		},
		{
			name:  "value without escapes keeps literal percent",
			input: "100%legit",
			want:  "100%legit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeCredential(tt.input); got != tt.want {
				t.Errorf("SanitizeCredential(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractInvoiceNumber(t *testing.T) {
	tests := []struct {
		name           string
		payerReference string
		want           string
	}{
		{
			name:           "prefixed zero padded reference",
			payerReference: "INV00042",
			want:           "42",
		},
		{
			name:           "plain number",
			payerReference: "77",
			want:           "77",
		},
		{
			name:           "garbage yields empty",
			payerReference: "garbage",
			want:           "",
		},
		{
			name:           "empty reference",
			payerReference: "",
			want:           "",
		},
		{
			name:           "digits mixed with noise",
			payerReference: "INV-12a3",
			want:           "123",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractInvoiceNumber(tt.payerReference); got != tt.want {
				t.Errorf("ExtractInvoiceNumber(%q) = %q, want %q", tt.payerReference, got, tt.want)
			}
		})
	}
}
