// Package logger wraps zerolog with the printf-style helpers used across the
// CLI and structured child loggers for the pipeline stages.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

// Options configures the root logger.
type Options struct {
	Level   string
	Format  string // "console" or "json"
	Writer  io.Writer
	Service string
}

var (
	mu   sync.RWMutex
	root *zerolog.Logger
)

// FromEnv reads LOG_LEVEL and LOG_FORMAT.
func FromEnv() Options {
	return Options{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  strings.ToLower(os.Getenv("LOG_FORMAT")),
		Service: "commentflow",
	}
}

// InitLogger builds the root logger. It may be called again to reconfigure
// (tests swap the writer).
func InitLogger(opt Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opt.Writer != nil}
	}

	ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	l := ctx.Logger()

	mu.Lock()
	root = &l
	mu.Unlock()
}

// Init configures the logger from the environment.
func Init() { InitLogger(FromEnv()) }

// Get returns the root logger, initialising it from the environment on first use.
func Get() *Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	if l == nil {
		Init()
		mu.RLock()
		l = root
		mu.RUnlock()
	}
	return l
}

// Named returns a child logger tagged with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func Info(format string, v ...interface{}) {
	Get().Info().Msgf(format, v...)
}

func Infof(format string, v ...interface{}) {
	Info(format, v...)
}

func Error(format string, v ...interface{}) {
	Get().Error().Msgf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	Error(format, v...)
}

func Warn(format string, v ...interface{}) {
	Get().Warn().Msgf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	Warn(format, v...)
}
