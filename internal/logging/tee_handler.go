package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes each record to every output that accepts its level.
// NewFromConfig uses it to pair the stderr handler with the daily JSON file.
type teeHandler struct {
	outputs []slog.Handler
}

// TeeHandler combines outputs into one handler. Nil outputs are dropped and a
// single output is returned as is.
func TeeHandler(outputs ...slog.Handler) slog.Handler {
	var kept []slog.Handler
	for _, out := range outputs {
		if out != nil {
			kept = append(kept, out)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0]
	}
	return &teeHandler{outputs: kept}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, out := range h.outputs {
		if out.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle gives every output its own copy of the record, so one output adding
// attributes never leaks into another. A failing output does not stop the rest.
func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, out := range h.outputs {
		if !out.Enabled(ctx, record.Level) {
			continue
		}
		if err := out.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(out slog.Handler) slog.Handler { return out.WithAttrs(attrs) })
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return h.each(func(out slog.Handler) slog.Handler { return out.WithGroup(name) })
}

func (h *teeHandler) each(derive func(slog.Handler) slog.Handler) slog.Handler {
	outputs := make([]slog.Handler, len(h.outputs))
	for i, out := range h.outputs {
		outputs[i] = derive(out)
	}
	return &teeHandler{outputs: outputs}
}
