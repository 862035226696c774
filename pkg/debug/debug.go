// Package debug provides global switches for verbose logging.
package debug

import "github.com/teslashibe/go-tryon/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Tracking controls whether per-frame pose logs are shown (applied position,
// rotation, scale on every rendered frame).
// Use --debug-tracking flag to enable these very verbose logs
var Tracking bool

// Log logs a message only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Info(msg, args...)
	}
}

// TrackLog logs a message only if tracking debug mode is enabled
func TrackLog(msg string, args ...any) {
	if Tracking {
		log.Info(msg, append(args, "trace", "tracking")...)
	}
}
