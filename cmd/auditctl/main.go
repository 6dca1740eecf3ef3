// Command auditctl drives the reconciliation engine against a persisted store
// from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	if err := a.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "auditctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
