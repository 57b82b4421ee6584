// Package main is the entry point for the tablewatch CLI.
package main

import (
	"os"

	"github.com/jmylchreest/tablewatch/cmd/tablewatch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
