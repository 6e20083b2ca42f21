package main

import (
	"os"

	"github.com/eeforge/eectl/internal/cli"
	"github.com/eeforge/eectl/internal/logging"
)

// main is the entry point for the eectl CLI binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
