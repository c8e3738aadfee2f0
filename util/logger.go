// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Log output encodings.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger writes levelled messages through a zap core.  Verbosity gating
// happens here; zap only formats and writes.  Verbose and Debug lines
// are both emitted at zap's debug level.
type Logger struct {
	level      LogLevel
	output     io.Writer
	format     string
	timestamps bool // if true, prepend ISO8601 timestamps
	fields     []interface{}
	sugar      *zap.SugaredLogger
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug) to stderr.
func NewLogger(verbosity int) *Logger {
	l := &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		format:     FormatConsole,
		timestamps: verbosity >= 3, // auto-enable timestamps in debug mode
	}
	l.rebuild()
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.timestamps = on
	l.rebuild()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.rebuild()
}

// SetFormat switches between the "console" and "json" encodings.
func (l *Logger) SetFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatConsole:
		l.format = FormatConsole
	case FormatJSON:
		l.format = FormatJSON
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", format)
	}
	l.rebuild()
	return nil
}

// With returns a child logger that attaches the given key/value pairs
// to every line.  Configuration changes on the parent after With are
// not seen by the child.
func (l *Logger) With(kv ...interface{}) *Logger {
	child := *l
	child.fields = append(append([]interface{}{}, l.fields...), kv...)
	child.sugar = l.sugar.With(kv...)
	return &child
}

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.sugar.Infof(format, args...)
	}
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.sugar.Warnf(format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.sugar.Debugf(format, args...)
	}
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.sugar.Debugf(format, args...)
	}
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes any buffered entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) rebuild() {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	if !l.timestamps {
		encCfg.TimeKey = ""
	}

	var enc zapcore.Encoder
	if l.format == FormatJSON {
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encCfg.MessageKey = "msg"
		encCfg.LevelKey = "level"
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(l.output)), zapcore.DebugLevel)
	l.sugar = zap.New(core).Sugar().With(l.fields...)
}
