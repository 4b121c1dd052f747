// Package logging provides the leveled, colorized console logger used by the
// chat server and the interactive client.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level controls which events a Logger reports. Errors are always printed.
type Level int

const (
	LevelError Level = iota
	LevelInfo
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	historyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Logger writes timestamped, colorized lines to a single writer. It is safe
// for concurrent use.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	level  Level
	colors bool
}

// New returns a Logger printing to stdout at the given level.
func New(level Level) *Logger {
	return &Logger{out: os.Stdout, level: level, colors: true}
}

// SetOutput redirects the logger's writer, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetColors toggles ANSI styling.
func (l *Logger) SetColors(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colors = on
}

// Success prints a green line when the level allows info output.
func (l *Logger) Success(format string, args ...any) {
	if l.level >= LevelInfo {
		l.write(successStyle, time.Now(), format, args...)
	}
}

// Info prints a cyan line when the level allows info output.
func (l *Logger) Info(format string, args ...any) {
	if l.level >= LevelInfo {
		l.write(infoStyle, time.Now(), format, args...)
	}
}

// Error prints a red line regardless of level.
func (l *Logger) Error(format string, args ...any) {
	l.write(errorStyle, time.Now(), format, args...)
}

// InfoAt is Info with an explicit timestamp, used when rendering responses
// that carry their own send time.
func (l *Logger) InfoAt(at time.Time, format string, args ...any) {
	if l.level >= LevelInfo {
		l.write(infoStyle, at, format, args...)
	}
}

// ErrorAt is Error with an explicit timestamp.
func (l *Logger) ErrorAt(at time.Time, format string, args ...any) {
	l.write(errorStyle, at, format, args...)
}

// HistoryAt prints a yellow line stamped with the replayed message's own
// send time.
func (l *Logger) HistoryAt(at time.Time, format string, args ...any) {
	if l.level >= LevelInfo {
		l.write(historyStyle, at, format, args...)
	}
}

func (l *Logger) write(style lipgloss.Style, at time.Time, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if l.colors {
		msg = style.Render(msg)
	}
	fmt.Fprintf(l.out, "[%s] %s\n", at.Format("15:04:05"), msg)
}
