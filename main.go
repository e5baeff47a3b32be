// Whiteboard - a shared drawing board server and line-protocol client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"whiteboard/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "whiteboard: %v\n", err)
		os.Exit(1)
	}
}
