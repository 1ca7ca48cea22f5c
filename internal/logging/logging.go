// Package logging builds the zap-backed logr.Logger used by the demo and tests.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr.Logger.V.
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// ParseLevel maps a level name to a logr verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// New returns a logger writing at the given level. Development mode uses the
// console encoder with caller information; otherwise output is JSON.
func New(level string, development bool) (logr.Logger, error) {
	v, err := ParseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}

	cfg := uberzap.NewProductionConfig()
	if development {
		cfg = uberzap.NewDevelopmentConfig()
	}
	// zapr maps V(n) to zap level -n.
	cfg.Level = uberzap.NewAtomicLevelAt(zapcore.Level(-1 * v))
	cfg.DisableStacktrace = !development

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger creates a development logger that emits every verbosity.
func NewTestLogger() logr.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(uberzap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.Level(-1*TRACE),
	)
	return zapr.NewLogger(uberzap.New(core, uberzap.AddCaller()))
}
