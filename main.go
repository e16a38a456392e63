package main

import (
	"household-api/core/logger"
	"household-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
