// Command extreg registers and unregisters pyRevit extension search paths.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	rootCmd, closeLog := newRootCmd()

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	if cerr := closeLog(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to close log file: %s\n", cerr)
	}

	os.Exit(exitCode(err))
}
