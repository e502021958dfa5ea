package repository

import (
	"sync"

	"prothompay.io/entities"
	"prothompay.io/infrastructure/database/connection/datastore"
	"prothompay.io/infrastructure/database/repository/mongo"
)

var transactionOnce = sync.Once{}

var transactionRepository mongo.MongoRepository[entities.GatewayTransaction]

func TransactionRepo() *mongo.MongoRepository[entities.GatewayTransaction] {
	transactionOnce.Do(func() {
		transactionRepository = mongo.MongoRepository[entities.GatewayTransaction]{Model: datastore.GatewayTransactionModel}
	})
	return &transactionRepository
}
