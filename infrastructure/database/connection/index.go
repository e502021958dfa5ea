package connection

import (
	"prothompay.io/infrastructure/database/connection/cache"
	"prothompay.io/infrastructure/database/connection/datastore"
)

func ConnectToDatabase() {
	datastore.ConnectToDatabase()
	cache.ConnectToCache()
}
