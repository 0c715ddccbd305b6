// Package log provides structured logging for estimators, the trainer and
// the predictor server.
//
// It is a thin layer over github.com/rs/zerolog. Components obtain a named
// Logger and log with alternating key/value pairs using the attribute keys
// declared in attributes.go:
//
//	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "RandomForestClassifier")
//	logger.Info("Training started", log.SamplesKey, n, log.FeaturesKey, p)
//
// Commands call SetupLogger (or Setup for file output) once at start-up.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/delvitaw/obesity/pkg/errors"
)

// Logger is the key/value logger used throughout the module.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

// LoggerProvider creates named loggers.
type LoggerProvider interface {
	GetLoggerWithName(name string) Logger
}

var (
	mu       sync.RWMutex
	root     = newRoot(os.Stderr, zerolog.InfoLevel)
	provider LoggerProvider
)

func newRoot(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ToLogLevel parses a level name. Unknown names map to info.
func ToLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetupLogger configures the global logger to write human readable output
// to stderr at the given level.
func SetupLogger(level string) {
	_ = Setup(Config{Level: level, Console: true})
}

// Config describes where logs go.
type Config struct {
	Level   string
	Console bool // human readable stderr output instead of JSON

	// File enables a rotating log file in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup configures the global logger from cfg.
func Setup(cfg Config) error {
	level := ToLogLevel(cfg.Level)

	var stderr io.Writer = os.Stderr
	if cfg.Console {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{stderr}
	if cfg.File != "" {
		if cfg.MaxSizeMB < 0 || cfg.MaxBackups < 0 || cfg.MaxAgeDays < 0 {
			return errors.NewValidationError("log rotation", "limits must be non-negative",
				fmt.Sprintf("%d/%d/%d", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays))
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	}

	SetOutput(zerolog.MultiLevelWriter(writers...), level)
	return nil
}

// SetOutput replaces the global writer and level. Tests use it to capture logs.
func SetOutput(w io.Writer, level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(level)
	root = newRoot(w, level)
	zlog.Logger = root
	provider = &zerologProvider{level: level}
}

// GetLogger returns the global zerolog logger for event-style logging.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := root
	return &l
}

// GetLoggerWithName returns a named key/value Logger.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	p := provider
	level := root.GetLevel()
	mu.RUnlock()
	if p == nil {
		p = NewZerologProvider(level)
	}
	return p.GetLoggerWithName(name)
}

// LogError logs err at error level with an error code when one applies.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	event := GetLogger().Error().Err(err)
	if code := errorCode(err); code != "" {
		event = event.Str(ErrorCodeKey, code)
	}
	event.Msg(msg)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errors.ErrNotFitted):
		return ErrorNotFitted
	case errors.Is(err, errors.ErrDimensionMismatch):
		return ErrorDimensionMismatch
	case errors.Is(err, errors.ErrEmptyData):
		return ErrorEmptyData
	case errors.Is(err, errors.ErrSchemaMismatch):
		return ErrorSchemaMismatch
	}
	var verr *errors.ValidationError
	if errors.As(err, &verr) {
		return ErrorInvalidInput
	}
	var valErr *errors.ValueError
	if errors.As(err, &valErr) {
		return ErrorInvalidInput
	}
	return ""
}

type zerologProvider struct {
	level zerolog.Level
}

// NewZerologProvider returns a LoggerProvider backed by the global zerolog writer.
func NewZerologProvider(level zerolog.Level) LoggerProvider {
	return &zerologProvider{level: level}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	mu.RLock()
	base := root
	mu.RUnlock()
	return &zerologLogger{l: base.Level(p.level).With().Str(LoggerNameKey, name).Logger()}
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, fields ...interface{}) {
	z.l.Debug().Fields(fields).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...interface{}) {
	z.l.Info().Fields(fields).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...interface{}) {
	z.l.Warn().Fields(fields).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...interface{}) {
	z.l.Error().Fields(fields).Msg(msg)
}

func (z *zerologLogger) With(fields ...interface{}) Logger {
	return &zerologLogger{l: z.l.With().Fields(fields).Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{l: zerolog.Nop()}
}
