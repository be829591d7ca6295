// Package main is the entry point for the opspulse CLI.
package main

import (
	"os"

	"github.com/OpsPulse/opspulse/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
