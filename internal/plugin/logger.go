package plugin

import (
	"fmt"
	"log"
)

// Logger is the minimal logging surface hooks report errors through.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// DefaultLogger is a stdlib-log backed Logger.
type DefaultLogger struct {
	prefix string
}

// NewDefaultLogger creates a DefaultLogger with the given prefix.
func NewDefaultLogger(prefix string) *DefaultLogger {
	return &DefaultLogger{prefix: prefix}
}

// Debug logs at debug level
func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	log.Printf("[DEBUG] [%s] %s", l.prefix, fmt.Sprintf(msg, args...))
}

// Info logs at info level
func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	log.Printf("[INFO] [%s] %s", l.prefix, fmt.Sprintf(msg, args...))
}

// Warn logs at warn level
func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	log.Printf("[WARN] [%s] %s", l.prefix, fmt.Sprintf(msg, args...))
}

// Error logs at error level
func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] [%s] %s", l.prefix, fmt.Sprintf(msg, args...))
}
