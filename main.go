// File: main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/neurodesk/cmd"
)

// main is the entry point of the application. Interrupt signals cancel the
// root context so the serve loops unwind cleanly before the process exits.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			// Graceful shutdown initiated by the operator.
			return
		}
		os.Exit(1)
	}
}
