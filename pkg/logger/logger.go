// Package logger provides the bot's leveled logger.
// Console output is colored; every line is also appended to logs/combined.log
// and errors to logs/error.log.
package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m" // Bold Red
	case LevelError:
		return "\033[31m" // Red
	case LevelWarn:
		return "\033[33m" // Yellow
	case LevelSuccess:
		return "\033[32m" // Green
	case LevelInfo:
		return "\033[36m" // Cyan
	case LevelDebug:
		return "\033[35m" // Magenta
	case LevelSystem:
		return "\033[34m" // Blue
	default:
		return "\033[0m" // Reset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000 // Red
	case LevelWarn:
		return 0xFFFF00 // Yellow
	case LevelSuccess:
		return 0x00FF00 // Green
	case LevelInfo:
		return 0x0000FF // Blue
	case LevelDebug:
		return 0x800080 // Purple
	case LevelSystem:
		return 0x808080 // Grey
	default:
		return 0xFFFFFF // White
	}
}

// logrusLevel maps a LogLevel onto the closest logrus level.
// Panic and Fatal are never used since logrus would abort on them.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

const (
	colorReset = "\033[0m"
	fieldLevel = "zlevel"
	fieldPfx   = "prefix"
	timeLayout = "2006-01-02 15:04:05"
)

// lineFormatter renders entries as "[time] [LEVEL] [prefix]: message"
type lineFormatter struct {
	colors bool
}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level, _ := e.Data[fieldLevel].(LogLevel)
	prefix, _ := e.Data[fieldPfx].(string)

	var b bytes.Buffer
	if f.colors {
		fmt.Fprintf(&b, "[%s] [%s%s%s] [%s]: %s\n", e.Time.Format(timeLayout), level.Color(), level, colorReset, prefix, e.Message)
	} else {
		fmt.Fprintf(&b, "[%s] [%s] [%s]: %s\n", e.Time.Format(timeLayout), level, prefix, e.Message)
	}
	return b.Bytes(), nil
}

// fileHook appends every entry to the combined log and errors to the error log
type fileHook struct {
	formatter *lineFormatter
	combined  *os.File
	errors    *os.File
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	if h.combined != nil {
		_, _ = h.combined.Write(line)
	}
	if level, _ := e.Data[fieldLevel].(LogLevel); level <= LevelError && h.errors != nil {
		_, _ = h.errors.Write(line)
	}
	return nil
}

// Logger is the main logging structure
type Logger struct {
	logrus    *logrus.Logger
	logFile   *os.File
	errorFile *os.File
}

// logger is the global logger instance
var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance writing files under logsDir
func Init(logsDir string) *Logger {
	once.Do(func() {
		logger = NewLogger(logsDir)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("logs")
	})
	return logger
}

// NewLogger creates a new Logger instance
func NewLogger(logsDir string) *Logger {
	l := &Logger{logrus: logrus.New()}

	l.logrus.SetOutput(os.Stdout)
	l.logrus.SetFormatter(&lineFormatter{colors: true})
	l.logrus.SetLevel(logrus.DebugLevel)

	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creating logs directory: %v\n", err)
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening combined log file: %v\n", err)
	}

	l.errorFile, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error opening error log file: %v\n", err)
	}

	l.logrus.AddHook(&fileHook{
		formatter: &lineFormatter{},
		combined:  l.logFile,
		errors:    l.errorFile,
	})

	return l
}

func (l *Logger) log(level LogLevel, message string, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		fieldLevel: level,
		fieldPfx:   prefix,
	}).Log(level.logrusLevel(), message)
}

// Close closes the log files
func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
	if l.errorFile != nil {
		l.errorFile.Close()
	}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Package-level functions for convenience

func Critical(message string, prefix string) { Get().Critical(message, prefix) }
func Error(message string, prefix string)    { Get().Error(message, prefix) }
func Warn(message string, prefix string)     { Get().Warn(message, prefix) }
func Success(message string, prefix string)  { Get().Success(message, prefix) }
func Info(message string, prefix string)     { Get().Info(message, prefix) }
func Debug(message string, prefix string)    { Get().Debug(message, prefix) }
func System(message string, prefix string)   { Get().System(message, prefix) }
