// Package logging hands out one slog.Logger per category. Each category has
// its own level, so packet-level chatter can be turned up without drowning
// the rest of the output.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

type LogCategory string

const (
	META   LogCategory = "meta" // For logs about logging
	OSC_IN LogCategory = "osc_in"
	ACTION LogCategory = "action"
	CONFIG LogCategory = "config"
	APP    LogCategory = "app"
)

var categories = []LogCategory{META, OSC_IN, ACTION, CONFIG, APP}

// ParseCategory maps a lowercase category name to its LogCategory.
func ParseCategory(s string) (LogCategory, bool) {
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Format selects the output encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
)

var (
	mu           sync.RWMutex
	out          io.Writer = os.Stderr
	format                 = Text
	color                  = true
	loggers                = map[LogCategory]*slog.Logger{}
	categoryLvls           = map[LogCategory]*slog.LevelVar{}
)

// Options configures Setup.
type Options struct {
	Writer  io.Writer
	Format  Format
	Level   slog.Level
	NoColor bool
}

// Setup replaces the output and the level of every category. Loggers
// handed out earlier keep their old handler but follow the new level.
func Setup(opts Options) error {
	if opts.Format == "" {
		opts.Format = Text
	}
	if opts.Format != Text && opts.Format != JSON {
		return fmt.Errorf("unknown log format %q", opts.Format)
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	mu.Lock()
	out = opts.Writer
	format = opts.Format
	color = !opts.NoColor
	loggers = map[LogCategory]*slog.Logger{}
	for _, c := range categories {
		levelVar(c).Set(opts.Level)
	}
	mu.Unlock()

	slog.SetDefault(Get(APP))
	Get(META).Debug("logging configured", "format", opts.Format, "level", opts.Level)
	return nil
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// Get returns the logger for category, creating it on first use.
func Get(category LogCategory) *slog.Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	// Double-check after locking
	if l, ok := loggers[category]; ok {
		return l
	}
	l = slog.New(newHandler(levelVar(category))).With("category", string(category))
	loggers[category] = l
	return l
}

// SetCategoryLevel changes one category's level. Loggers already handed
// out follow the change.
func SetCategoryLevel(category LogCategory, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	levelVar(category).Set(level)
}

// levelVar must be called with mu held.
func levelVar(category LogCategory) *slog.LevelVar {
	lvl, ok := categoryLvls[category]
	if !ok {
		lvl = new(slog.LevelVar)
		categoryLvls[category] = lvl
	}
	return lvl
}

// newHandler must be called with mu held.
func newHandler(level slog.Leveler) slog.Handler {
	if format == JSON {
		return slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	})
}
