// Package main is the entry point for the hiconvert CLI.
package main

import (
	"os"

	"github.com/runger/hiconvert/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
