package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/rabbitops/rmqcheck/internal/models"
)

// debugEnv enables verbose logging and fault traces when set to any
// non-empty value.
const debugEnv = "CHECK_QUEUES_DEBUG"

// main is the process fault barrier. Whatever goes wrong inside the command
// tree — a returned error or a panic — degrades to a WARNING line and exit
// code 1, so a bug in the checker reads as "needs attention" instead of
// crashing the monitoring host or silently reporting OK.
func main() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv(debugEnv) != "" {
				fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
			}
			reportFault(fmt.Errorf("%v", r))
		}
	}()

	if err := newRootCmd(newLogger()).Execute(); err != nil {
		reportFault(err)
	}
}

func reportFault(err error) {
	fmt.Printf("WARNING - unhandled Exception: %s\n", err)
	os.Exit(models.ExitWarning)
}

// newLogger builds the process logger. Everything it writes goes to stderr;
// stdout carries only the single status line.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(debugEnv) != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
