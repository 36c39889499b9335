package auth

import (
	pkglog "log"
)

var logger = NewLogger(ErrLevel)

// SetLogger sets logger for the package.
func SetLogger(l Logger) {
	logger = l
}

// Logger interface used in this package.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LogLevel is log level.
type LogLevel int

const (
	// DebugLevel for debug messages.
	DebugLevel LogLevel = 3
	// InfoLevel for info messages.
	InfoLevel LogLevel = 2
	// WarnLevel for warning messages.
	WarnLevel LogLevel = 1
	// ErrLevel for errors.
	ErrLevel LogLevel = 0
)

// NewLogger creates a Logger.
func NewLogger(lev LogLevel) Logger {
	return &defaultLog{Level: lev}
}

type defaultLog struct {
	Level LogLevel
}

func (l defaultLog) Debugf(format string, args ...interface{}) {
	if l.Level >= 3 {
		pkglog.Printf("[DEBG] "+format+"\n", args...)
	}
}

func (l defaultLog) Infof(format string, args ...interface{}) {
	if l.Level >= 2 {
		pkglog.Printf("[INFO] "+format+"\n", args...)
	}
}

func (l defaultLog) Warningf(format string, args ...interface{}) {
	if l.Level >= 1 {
		pkglog.Printf("[WARN] "+format+"\n", args...)
	}
}

func (l defaultLog) Errorf(format string, args ...interface{}) {
	if l.Level >= 0 {
		pkglog.Printf("[ERR]  "+format+"\n", args...)
	}
}
