package env

import (
	"github.com/joho/godotenv"

	"prothompay.io/infrastructure/logger"
)

func init() {
	logger.InitializeLogger()
	if err := godotenv.Load(); err != nil {
		logger.Info("error loading env variables")
	}
}

func LoadEnv() {
}
