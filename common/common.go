// Package common holds identity and logging helpers shared by the server
// core, the ops sidecar, and the command-line tools.
package common

import (
	"log/slog"
	"os"
)

// PackageName identifies this module in metrics and log output.
const PackageName = "swifter"

// Version is stamped at build time via -ldflags.
var Version = "dev"

// SetupLogger builds the process-wide structured logger. JSON output is
// meant for production deployments, text for local development.
func SetupLogger(json, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler).With("service", PackageName)
}
