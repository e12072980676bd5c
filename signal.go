package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted = 130

// interruptError is the cancellation cause of a run stopped by a signal.
type interruptError struct {
	sig os.Signal
}

func (e *interruptError) Error() string {
	return fmt.Sprintf("interrupted by %s", signalName(e.sig))
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return sig.String()
	}
}

// shutdownContext returns a context that is canceled with an interruptError
// on the first SIGINT/SIGTERM and force-exits on the second. The running
// request finishes first: an export then discards its temp file, an import
// prints what it saved so far.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, stopping after the current request",
				slog.String("signal", signalName(sig)),
			)
			cancel(&interruptError{sig: sig})
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit",
				slog.String("signal", signalName(sig)),
			)
			os.Exit(exitInterrupted)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}

// interrupted returns the interruptError that canceled ctx, or nil.
func interrupted(ctx context.Context) *interruptError {
	var ie *interruptError
	if errors.As(context.Cause(ctx), &ie) {
		return ie
	}

	return nil
}
