// Package main provides the entry point for the linkforge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/musicofhel/link-forge-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
