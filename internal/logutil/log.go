// Package logutil carries the module's internal leveled logger. Teardown
// paths have no error channel back to the caller, so failures there are
// reported here instead of being silently dropped.
package logutil

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Level controls which records are emitted. The default is LevelWarn;
// MEMFILE_LOG_LEVEL=debug|info|warn|error|off overrides it at startup.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

var globalLevel atomic.Int32

func init() {
	globalLevel.Store(int32(LevelWarn))
	if v := os.Getenv("MEMFILE_LOG_LEVEL"); v != "" {
		switch strings.ToLower(v) {
		case "debug":
			globalLevel.Store(int32(LevelDebug))
		case "info":
			globalLevel.Store(int32(LevelInfo))
		case "warn", "warning":
			globalLevel.Store(int32(LevelWarn))
		case "error":
			globalLevel.Store(int32(LevelError))
		case "off", "none":
			globalLevel.Store(int32(LevelOff))
		}
	}
}

// SetLevel overrides the level for every Logger in the process.
func SetLevel(l Level) {
	globalLevel.Store(int32(l))
}

// Logger writes tagged, timestamped records to a single destination.
type Logger struct {
	tag string
	out io.Writer
}

// New returns a logger writing to stderr under the given tag.
func New(tag string) *Logger {
	return &Logger{tag: tag, out: os.Stderr}
}

func (l *Logger) logf(lv Level, name, format string, args ...interface{}) {
	if int32(lv) < globalLevel.Load() {
		return
	}
	fmt.Fprintf(l.out, "%s %s [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), name, l.tag,
		fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, "DEBUG", format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, "INFO", format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, "WARN", format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, "ERROR", format, args...)
}
