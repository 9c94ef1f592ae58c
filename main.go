// Package main is the entry point for the Bug Cutter backend.
package main

import (
	"fmt"
	"os"

	"github.com/VrtlyJoe/bug-cutter-frontend/cmd"
	"github.com/VrtlyJoe/bug-cutter-frontend/internal/logging"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
