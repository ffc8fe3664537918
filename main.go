// Package main is the entry point for the prlink CLI application.
package main

import (
	"os"

	"github.com/danielolaszy/prlink/cmd"
	"github.com/danielolaszy/prlink/internal/logging"
)

// main is the entry point of the application.
// It executes the root command and handles any errors that occur.
func main() {
	if err := cmd.Execute(); err != nil {
		logging.Debug("command execution failed", "error", err)
		os.Exit(1)
	}
}
