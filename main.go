// Package main is the entry point for the triage CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/feedbackloop/triage/cmd"
)

// main executes the root command and handles any errors that occur.
func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
