package main

import (
	"fmt"
	"os"

	"github.com/engram-oss/engram/internal/cli"
	"github.com/engram-oss/engram/internal/errors"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if s := errors.Suggestion(err); s != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", s)
		}
		os.Exit(1)
	}
}
