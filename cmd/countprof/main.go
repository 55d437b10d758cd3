// Package main provides the countprof binary.
package main

import (
	"fmt"
	"os"

	"github.com/countprof/countprof/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
