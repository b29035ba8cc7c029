// Package logging provides a colored slog handler for human-readable
// terminal output.
package logging

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/fatih/color"
)

// PrettyHandlerOptions configures the PrettyHandler.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler is a slog.Handler that prints one colored line per record.
type PrettyHandler struct {
	slog.Handler
	l *log.Logger
}

// NewPrettyHandler creates a PrettyHandler writing to out.
func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

// Handle formats the record as "[time] LEVEL: message {attrs}".
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]any, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})

	timeStr := r.Time.Format("[15:04:05.000]")
	msg := color.CyanString(r.Message)

	if len(fields) == 0 {
		h.l.Println(timeStr, level, msg)
		return nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	h.l.Println(timeStr, level, msg, color.WhiteString(string(b)))
	return nil
}

// New returns a slog.Logger backed by a PrettyHandler on stdout.
func New(level slog.Level) *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: level},
	}
	return slog.New(NewPrettyHandler(os.Stdout, opts))
}
