package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/vvka-141/crmingest/internal/cli"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(crmingest.ExitPanic)
		}
	}()

	if os.Getenv("CRMINGEST_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(crmingest.ExitCodeForError(err))
	}
}
