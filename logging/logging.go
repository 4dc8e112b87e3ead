// Package logging provides structured, leveled logging for the engine and
// its surrounding tooling, built on logrus.
package logging

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is a minimum log level.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Config configures a new logger.
type Config struct {
	Level      Level
	Format     string // "json" or "text"
	Component  string
	AddCaller  bool
	TimeFormat string
}

// DefaultConfig returns sensible defaults for a local-first engine process.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     "text",
		Component:  "kgc",
		AddCaller:  false,
		TimeFormat: time.RFC3339,
	}
}

// New creates a configured *logrus.Logger.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	case LevelFatal:
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: cfg.TimeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: cfg.TimeFormat, FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)
	return logger
}

// Context carries a base logger plus a fixed set of structured fields,
// scoped to an engine run (tick number, transaction id, hook id, ...).
type Context struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// NewContext wraps logger (or the package default if nil) with base fields.
func NewContext(logger *logrus.Logger, fields map[string]interface{}) *Context {
	if logger == nil {
		logger = defaultLogger
	}
	f := make(logrus.Fields, len(fields))
	for k, v := range fields {
		f[k] = v
	}
	return &Context{logger: logger, fields: f}
}

func (c *Context) clone() logrus.Fields {
	f := make(logrus.Fields, len(c.fields))
	for k, v := range c.fields {
		f[k] = v
	}
	return f
}

// With returns a derived Context with an additional field.
func (c *Context) With(key string, value interface{}) *Context {
	f := c.clone()
	f[key] = value
	return &Context{logger: c.logger, fields: f}
}

// WithFields returns a derived Context with additional fields merged in.
func (c *Context) WithFields(fields map[string]interface{}) *Context {
	f := c.clone()
	for k, v := range fields {
		f[k] = v
	}
	return &Context{logger: c.logger, fields: f}
}

// WithTick scopes the context to a tick number, the engine's primary unit of work.
func (c *Context) WithTick(tick uint64) *Context { return c.With("tick", tick) }

// WithTxn scopes the context to a transaction id.
func (c *Context) WithTxn(txnID string) *Context { return c.With("txn_id", txnID) }

// WithHook scopes the context to a hook invocation id.
func (c *Context) WithHook(hookID string) *Context { return c.With("hook_id", hookID) }

// FromContext extracts request/trace identifiers from a context.Context, if present.
func (c *Context) FromContext(ctx context.Context) *Context {
	f := c.clone()
	if v := ctx.Value(ctxKeyTraceID); v != nil {
		f["trace_id"] = v
	}
	return &Context{logger: c.logger, fields: f}
}

type ctxKey string

const ctxKeyTraceID ctxKey = "trace_id"

func (c *Context) Debug(msg string) { c.logger.WithFields(c.fields).Debug(msg) }
func (c *Context) Info(msg string)  { c.logger.WithFields(c.fields).Info(msg) }
func (c *Context) Warn(msg string)  { c.logger.WithFields(c.fields).Warn(msg) }
func (c *Context) Error(msg string) { c.logger.WithFields(c.fields).Error(msg) }

func (c *Context) Debugf(format string, args ...interface{}) {
	c.logger.WithFields(c.fields).Debugf(format, args...)
}
func (c *Context) Infof(format string, args ...interface{}) {
	c.logger.WithFields(c.fields).Infof(format, args...)
}
func (c *Context) Warnf(format string, args ...interface{}) {
	c.logger.WithFields(c.fields).Warnf(format, args...)
}
func (c *Context) Errorf(format string, args ...interface{}) {
	c.logger.WithFields(c.fields).Errorf(format, args...)
}

// WithError attaches an error to the next log line.
func (c *Context) WithError(err error) *Context {
	return c.With("error", err.Error())
}

var defaultLogger = New(DefaultConfig())

// Default returns the package-level default logger, used by components that
// are not given an explicit logger at construction time.
func Default() *logrus.Logger { return defaultLogger }

// Timed logs the start and completion of operation, including duration.
func Timed(c *Context, operation string, fn func() error) error {
	start := time.Now()
	scoped := c.With("operation", operation)
	scoped.Debug("operation started")

	err := fn()
	duration := time.Since(start)
	scoped = scoped.With("duration_ms", duration.Milliseconds())

	if err != nil {
		scoped.WithError(err).Error("operation failed")
		return err
	}
	scoped.Debug("operation completed")
	return nil
}
