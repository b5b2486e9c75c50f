package main

import (
	"github.com/neoforge-dev/synapse/internal/server"
	"github.com/neoforge-dev/synapse/internal/util"
	"github.com/neoforge-dev/synapse/pkg/logger"
	"github.com/neoforge-dev/synapse/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
