// Package main is the entry point for the prodplane CLI.
// The CLI is the operator terminal tool for interacting with the prodplane API.
package main

import (
	"os"

	"prodplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
