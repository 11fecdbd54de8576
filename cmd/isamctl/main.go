// isamctl normalizes Nokia ISAM configuration dumps.
//
// It flattens captured device output into canonical lines, parses it into
// structured facts, and runs the isamd daemon (HTTP and gRPC APIs) or an
// interactive shell over a capture directory.
package main

import (
	"context"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "isamctl: %v\n", err)
		os.Exit(1)
	}
}
