// Package vklog provides the three-way info/warn/error logger that the
// teacher's NewBaseCore wires up against info_log.txt/error_log.txt/warn_log.txt.
package vklog

import (
	"io"
	"log"
	"os"
)

// Logger groups the three severity-tagged loggers a device or resource
// package writes through. A nil *Logger is valid and logs to nothing.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
}

// Open creates a Logger backed by the three named files, truncating none
// of them (matching core.go's O_APPEND|O_CREATE|O_WRONLY).
func Open(infoPath, warnPath, errorPath string) (*Logger, error) {
	info, err := openAppend(infoPath)
	if err != nil {
		return nil, err
	}
	warn, err := openAppend(warnPath)
	if err != nil {
		return nil, err
	}
	errf, err := openAppend(errorPath)
	if err != nil {
		return nil, err
	}
	return &Logger{
		info:  log.New(info, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warn:  log.New(warn, "WARNING: ", log.Ldate|log.Ltime|log.Lshortfile),
		error: log.New(errf, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}, nil
}

// New builds a Logger that writes all three severities to w, for tests
// and for callers that don't want file-backed logs.
func New(w io.Writer) *Logger {
	return &Logger{
		info:  log.New(w, "INFO: ", log.Ldate|log.Ltime),
		warn:  log.New(w, "WARNING: ", log.Ldate|log.Ltime),
		error: log.New(w, "ERROR: ", log.Ldate|log.Ltime),
	}
}

// Default logs to stderr. Used by packages constructed without an
// explicit Logger (tests, short-lived tools).
func Default() *Logger { return New(os.Stderr) }

func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.info.Printf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.warn.Printf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.error.Printf(format, args...)
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
}
