package startup

import (
	"prothompay.io/infrastructure/database"
	"prothompay.io/infrastructure/database/connection/datastore"
	"prothompay.io/infrastructure/gatewaylog"
	"prothompay.io/infrastructure/logger"
	"prothompay.io/infrastructure/payments"
)

// Used to start services such as loggers, databases, queues, etc.
func StartServices() {
	logger.InitializeLogger()
	database.SetUpDatabase()
	payments.InitialisePaymentProcessor()
}

// Used to clean up after services that have been shutdown.
func CleanUpServices() {
	datastore.CleanUp()
	gatewaylog.GatewayAuditLogger().Close()
}
