// Package main is the entry point for the cjagent CLI.
package main

import (
	"os"

	"github.com/cojourney/cjagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
