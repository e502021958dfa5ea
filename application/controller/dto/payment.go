package dto

type CheckoutDTO struct {
	InvoiceID string `json:"invoiceId" validate:"required"`
}

type GatewayCallbackDTO struct {
	PaymentID string `json:"paymentID"`
	Status    string `json:"status"`
}
