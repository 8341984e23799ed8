// Package main provides the achillesduck command.
package main

import (
	"os"

	"github.com/leapstack-labs/achillesduck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
