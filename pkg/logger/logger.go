package logger

import (
	"log"
	"os"
)

var std *log.Logger

// Init initializes the plain process logger used during startup, before the
// structured logger is configured.
func Init() {
	std = log.New(os.Stdout, "", log.LstdFlags)
}

// Info logs an informational message
func Info(format string, args ...interface{}) {
	if std == nil {
		Init()
	}
	std.Printf("[INFO] "+format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if std == nil {
		Init()
	}
	std.Printf("[WARN] "+format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if std == nil {
		Init()
	}
	std.Printf("[ERROR] "+format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	if std == nil {
		Init()
	}
	std.Fatalf("[FATAL] "+format, args...)
}
