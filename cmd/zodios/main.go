// Command zodios calls the endpoints of a catalog file from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/astahmer/zodios/internal/cli"
)

func main() {
	ctx, cancel := cli.ContextWithSignals(context.Background())
	defer cancel()

	if err := cli.New().Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
