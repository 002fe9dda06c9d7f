// ABOUTME: Entry point for the skycast CLI
// ABOUTME: Runs the root command with a context cancelled on SIGINT or SIGTERM

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	if cerr := closeApp(); cerr != nil && err == nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", cerr)
		err = cerr
	}
	stop()
	if err != nil {
		os.Exit(1)
	}
}
