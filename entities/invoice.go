package entities

import (
	"time"

	"prothompay.io/application/utils"
)

type InvoiceStatus string

const (
	InvoiceUnpaid    InvoiceStatus = "Unpaid"
	InvoicePaid      InvoiceStatus = "Paid"
	InvoiceCancelled InvoiceStatus = "Cancelled"
	InvoiceRefunded  InvoiceStatus = "Refunded"
)

type Invoice struct {
	Number   string        `bson:"number" json:"number"`
	UserID   string        `bson:"userID" json:"userID"`
	Status   InvoiceStatus `bson:"status" json:"status"`
	TotalDue string        `bson:"totalDue" json:"totalDue"`
	Currency string        `bson:"currency" json:"currency"`
	PaidAt   *time.Time    `bson:"paidAt" json:"paidAt"`

	ID        string     `bson:"_id" json:"id"`
	CreatedAt time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt *time.Time `bson:"deletedAt" json:"deletedAt"`
}

func (model Invoice) ParseModel() any {
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
