// Package main is the entry point for the flatscraper CLI.
package main

import (
	"os"

	"github.com/jmylchreest/flatscraper/cmd/flatscraper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
