// Package logging holds the process-wide slog logger. Every component logs
// through With so that lines can be filtered by the component that wrote them.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type Options struct {
	Level  string // debug, info, warn or error; anything else is info
	JSON   bool
	Source bool      // add file:line to every record
	Output io.Writer // defaults to stderr
}

var def atomic.Pointer[slog.Logger]

func init() { Configure(Options{}) }

// Configure replaces the process logger. Loggers already derived with With
// keep writing to the handler they were created with.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: parseLevel(opts.Level), AddSource: opts.Source}
	var h slog.Handler = slog.NewTextHandler(out, ho)
	if opts.JSON {
		h = slog.NewJSONHandler(out, ho)
	}
	def.Store(slog.New(h))
}

func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// L returns the process logger.
func L() *slog.Logger { return def.Load() }

// With returns the process logger tagged with a component name.
func With(component string) *slog.Logger {
	return L().With("component", component)
}

// InitFromEnv configures the logger from TITANIC_LOG_LEVEL, TITANIC_LOG_JSON
// and TITANIC_LOG_SOURCE.
func InitFromEnv() {
	Configure(Options{
		Level:  os.Getenv("TITANIC_LOG_LEVEL"),
		JSON:   envBool("TITANIC_LOG_JSON"),
		Source: envBool("TITANIC_LOG_SOURCE"),
	})
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}
