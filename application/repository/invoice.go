package repository

import (
	"sync"

	"prothompay.io/entities"
	"prothompay.io/infrastructure/database/connection/datastore"
	"prothompay.io/infrastructure/database/repository/mongo"
)

var invoiceOnce = sync.Once{}

var invoiceRepository mongo.MongoRepository[entities.Invoice]

func InvoiceRepo() *mongo.MongoRepository[entities.Invoice] {
	invoiceOnce.Do(func() {
		invoiceRepository = mongo.MongoRepository[entities.Invoice]{Model: datastore.InvoiceModel}
	})
	return &invoiceRepository
}
