package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/graphquill/graphquill/core/domain/interfaces"
)

const (
	LogLevelError = 1
	LogLevelWarn  = 2
	LogLevelInfo  = 3
	LogLevelDebug = 4
)

var (
	globalLogLevel = LogLevelInfo
	logLevelMutex  sync.RWMutex
)

// SetLogLevel sets the global log level
func SetLogLevel(level int) {
	logLevelMutex.Lock()
	defer logLevelMutex.Unlock()
	if level >= LogLevelError && level <= LogLevelDebug {
		globalLogLevel = level
		zerolog.SetGlobalLevel(convertLogLevel(level))
	}
}

// GetLogLevel returns the current global log level
func GetLogLevel() int {
	logLevelMutex.RLock()
	defer logLevelMutex.RUnlock()
	return globalLogLevel
}

// Logger is the interface exported from this package
type Logger = interfaces.Logger

// ZerologLogger implements the Logger interface using zerolog
type ZerologLogger struct {
	tag    string
	logger zerolog.Logger
}

// New creates a new logger instance with a tag
func New(tag string) Logger {
	logger := log.Logger.With().Str("tag", tag).Logger()

	// Pretty console output when attached to a terminal, JSON otherwise
	if isInteractive() {
		var output io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.000Z"}
		logger = zerolog.New(output).With().Str("tag", tag).Timestamp().Logger()
	}

	return &ZerologLogger{
		tag:    tag,
		logger: logger,
	}
}

// isInteractive checks if the output is going to a terminal
func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// convertLogLevel converts our log level to zerolog level
func convertLogLevel(level int) zerolog.Level {
	switch level {
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// checkLogLevel checks if we should log at this level
func (l *ZerologLogger) checkLogLevel(level int) bool {
	logLevelMutex.RLock()
	shouldLog := level <= globalLogLevel
	logLevelMutex.RUnlock()
	return shouldLog
}

// Error logs at ERROR level
func (l *ZerologLogger) Error(message string) {
	if !l.checkLogLevel(LogLevelError) {
		return
	}
	l.logger.Error().Msg(message)
}

// Errorf logs at ERROR level with formatting
func (l *ZerologLogger) Errorf(format string, args ...any) {
	if !l.checkLogLevel(LogLevelError) {
		return
	}
	l.logger.Error().Msgf(format, args...)
}

// Warn logs at WARN level
func (l *ZerologLogger) Warn(message string) {
	if !l.checkLogLevel(LogLevelWarn) {
		return
	}
	l.logger.Warn().Msg(message)
}

// Warnf logs at WARN level with formatting
func (l *ZerologLogger) Warnf(format string, args ...any) {
	if !l.checkLogLevel(LogLevelWarn) {
		return
	}
	l.logger.Warn().Msgf(format, args...)
}

// Info logs at INFO level
func (l *ZerologLogger) Info(message string) {
	if !l.checkLogLevel(LogLevelInfo) {
		return
	}
	l.logger.Info().Msg(message)
}

// Infof logs at INFO level with formatting
func (l *ZerologLogger) Infof(format string, args ...any) {
	if !l.checkLogLevel(LogLevelInfo) {
		return
	}
	l.logger.Info().Msgf(format, args...)
}

// Debug logs at DEBUG level
func (l *ZerologLogger) Debug(message string) {
	if !l.checkLogLevel(LogLevelDebug) {
		return
	}
	l.logger.Debug().Msg(message)
}

// Debugf logs at DEBUG level with formatting
func (l *ZerologLogger) Debugf(format string, args ...any) {
	if !l.checkLogLevel(LogLevelDebug) {
		return
	}
	l.logger.Debug().Msgf(format, args...)
}

// PrintError logs a titled error, skipping nil errors
func (l *ZerologLogger) PrintError(title string, err error) {
	if err == nil {
		return
	}
	l.Errorf("%s: %v", title, err)
}
