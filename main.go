package main

import (
	"prothompay.io/infrastructure"
	"prothompay.io/infrastructure/env"
)

func init() {
	env.LoadEnv()
}

func main() {
	infrastructure.StartServer()
}
