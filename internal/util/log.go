package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// ──────────────────────────────────────────────────────────────────────────────
// Process-level logging
// ──────────────────────────────────────────────────────────────────────────────

// Leveled logging functions backed by the pterm default logger (stderr).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// DebugEnabled reports whether debug messages are shown.
func DebugEnabled() bool {
	lvl := pterm.DefaultLogger.Level
	return lvl == pterm.LogLevelDebug || lvl == pterm.LogLevelTrace
}

// ──────────────────────────────────────────────────────────────────────────────
// Peer-scoped logging
// ──────────────────────────────────────────────────────────────────────────────

// PeerLog prefixes every line with the peer's tag, e.g. "[1a2b3c4d] ...".
type PeerLog string

func (p PeerLog) prefix(format string) string {
	return fmt.Sprintf("[%08x] %s", PeerTag(string(p)), format)
}

func (p PeerLog) Debug(format string, args ...interface{}) { LogDebug(p.prefix(format), args...) }
func (p PeerLog) Info(format string, args ...interface{})  { LogInfo(p.prefix(format), args...) }
func (p PeerLog) Warn(format string, args ...interface{})  { LogWarning(p.prefix(format), args...) }
func (p PeerLog) Error(format string, args ...interface{}) { LogError(p.prefix(format), args...) }
