package logger

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wonny/quantsnap/pkg/config"
)

// Field keys shared across packages
const (
	FieldModule    = "module"
	FieldRunID     = "run_id"
	FieldUniverse  = "universe"
	FieldTicker    = "ticker"
	FieldJob       = "job"
	FieldRequestID = "request_id"
)

// Logger is a structured logger wrapper around zerolog
// ⭐ SSOT: 모든 로깅은 이 패키지를 통해서만 수행
type Logger struct {
	zlog zerolog.Logger
}

// New creates a new Logger instance from config.
// Logs go to stderr so rank/factors output on stdout stays machine readable.
func New(cfg *config.Config) *Logger {
	var output io.Writer = os.Stderr
	if cfg.LogFormat == "console" || cfg.LogFormat == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				FieldModule,
				zerolog.MessageFieldName,
			},
			FieldsExclude: []string{FieldModule},
		}
	}

	zlog := zerolog.New(output).
		Level(parseLogLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("service", "quantsnap").
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// NewWithWriter creates a JSON logger writing to w at the given level
func NewWithWriter(w io.Writer, level string) *Logger {
	return &Logger{zlog: zerolog.New(w).Level(parseLogLevel(level)).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything (tests, library defaults)
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func parseLogLevel(levelStr string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err == nil && level != zerolog.NoLevel {
		return level
	}
	if strings.EqualFold(levelStr, "warning") {
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

// Level returns the minimum level that is written
func (l *Logger) Level() zerolog.Level {
	return l.zlog.GetLevel()
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.zlog.Debug().Msg(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.zlog.Info().Msg(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.zlog.Warn().Msg(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.zlog.Error().Msg(msg)
}

// WithField returns a new logger with an additional field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields returns a new logger with multiple fields, added in key order
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := l.zlog.With()
	for _, k := range keys {
		ctx = ctx.Interface(k, fields[k])
	}
	return &Logger{zlog: ctx.Logger()}
}

// WithError returns a new logger with an error field
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}

// WithModule names the package emitting the entries
func (l *Logger) WithModule(name string) *Logger {
	return l.with(FieldModule, name)
}

// WithUniverse tags entries with a universe name
func (l *Logger) WithUniverse(universe string) *Logger {
	return l.with(FieldUniverse, universe)
}

// WithTicker tags entries with a ticker
func (l *Logger) WithTicker(ticker string) *Logger {
	return l.with(FieldTicker, ticker)
}

// WithJob tags entries with a scheduler job name
func (l *Logger) WithJob(name string) *Logger {
	return l.with(FieldJob, name)
}

// WithRequest tags entries with an API request id
func (l *Logger) WithRequest(requestID string) *Logger {
	return l.with(FieldRequestID, requestID)
}

func (l *Logger) with(key, value string) *Logger {
	return &Logger{zlog: l.zlog.With().Str(key, value).Logger()}
}

type ctxKey struct{}

type ctxField struct {
	key, value string
}

// ContextWith returns a copy of ctx carrying key=value for Ctx.
// A later value for the same key replaces the earlier one.
func ContextWith(ctx context.Context, key, value string) context.Context {
	parent, _ := ctx.Value(ctxKey{}).([]ctxField)
	fields := make([]ctxField, 0, len(parent)+1)
	for _, f := range parent {
		if f.key != key {
			fields = append(fields, f)
		}
	}
	fields = append(fields, ctxField{key: key, value: value})
	return context.WithValue(ctx, ctxKey{}, fields)
}

// ContextWithRun carries the run id and universe of a ranking run
func ContextWithRun(ctx context.Context, runID, universe string) context.Context {
	return ContextWith(ContextWith(ctx, FieldRunID, runID), FieldUniverse, universe)
}

// Ctx returns l tagged with the fields carried by ctx
func (l *Logger) Ctx(ctx context.Context) *Logger {
	fields, _ := ctx.Value(ctxKey{}).([]ctxField)
	if len(fields) == 0 {
		return l
	}
	zctx := l.zlog.With()
	for _, f := range fields {
		zctx = zctx.Str(f.key, f.value)
	}
	return &Logger{zlog: zctx.Logger()}
}
