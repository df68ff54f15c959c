package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/clkit/internal/errs"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps library error codes to process exit codes; anything else
// exits with errs.Other.
func exitCode(err error) int {
	return int(errs.CodeOf(err))
}
