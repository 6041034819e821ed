package logging

import (
	"context"
	"log/slog"
	"strings"
)

// componentLevelHandler applies [logging.components] levels. A logger tagged
// with a configured component through NewComponentLogger uses that level;
// every other logger uses the base level. The wrapped handler must accept the
// most verbose of them.
type componentLevelHandler struct {
	next   slog.Handler
	base   slog.Level
	levels map[string]slog.Level
	level  slog.Level
}

func newComponentLevelHandler(next slog.Handler, base slog.Level, levels map[string]slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	if len(levels) == 0 {
		return next
	}
	return &componentLevelHandler{next: next, base: base, levels: levels, level: base}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.level {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, attr := range attrs {
		if attr.Key != FieldComponent {
			continue
		}
		level = h.base
		if override, ok := h.levels[strings.ToLower(attr.Value.String())]; ok {
			level = override
		}
	}
	return &componentLevelHandler{next: h.next.WithAttrs(attrs), base: h.base, levels: h.levels, level: level}
}

// Grouped attributes never name a component.
func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{next: h.next.WithGroup(name), base: h.base, levels: h.levels, level: h.level}
}

// componentLevels parses the configured component levels and returns them
// with the most verbose level the output handlers must let through.
func componentLevels(base slog.Level, configured map[string]string) (map[string]slog.Level, slog.Level) {
	floor := base
	if len(configured) == 0 {
		return nil, floor
	}
	levels := make(map[string]slog.Level, len(configured))
	for name, value := range configured {
		level := parseLevel(value)
		levels[strings.ToLower(strings.TrimSpace(name))] = level
		floor = min(floor, level)
	}
	return levels, floor
}
