package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the logger described by the log block. Records carry the
// scheduler name so output from several schedulers can be told apart.
// Level was checked by Validate; anything unparsable falls back to info.
func (s Settings) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if s.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("scheduler", s.Scheduler.Name)
}
