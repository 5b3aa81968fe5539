// Package main is the skein entrypoint.
package main

import (
	"fmt"
	"os"

	"skein/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
