package entities

import (
	"time"

	"prothompay.io/application/utils"
)

type GatewayTransaction struct {
	InvoiceID string `bson:"invoiceID" json:"invoiceID"`
	TrxID     string `bson:"trxID" json:"trxID"`
	PaymentID string `bson:"paymentID" json:"paymentID"`
	Gateway   string `bson:"gateway" json:"gateway"`
	Amount    string `bson:"amount" json:"amount"`
	Fees      string `bson:"fees" json:"fees"`
	Metadata  any    `bson:"metadata" json:"metadata"`

	ID        string     `bson:"_id" json:"id"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt" json:"deletedAt"`
}

func (model GatewayTransaction) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateUULDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
