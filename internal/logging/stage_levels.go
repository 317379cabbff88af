package logging

import (
	"context"
	"log/slog"
	"strings"
)

// StageLevels maps stage names to the console level used while that stage
// runs. Keys and values are matched case-insensitively.
type StageLevels map[string]string

// parse returns the overrides as slog levels keyed by lower-cased stage name.
func (s StageLevels) parse() map[string]slog.Level {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]slog.Level, len(s))
	for stage, level := range s {
		name := strings.ToLower(strings.TrimSpace(stage))
		if name == "" || strings.TrimSpace(level) == "" {
			continue
		}
		out[name] = ParseLevel(level)
	}
	return out
}

// floor returns the most verbose level among base and every override.
func floor(base slog.Level, overrides map[string]slog.Level) slog.Level {
	lowest := base
	for _, level := range overrides {
		if level < lowest {
			lowest = level
		}
	}
	return lowest
}

// stageLevelHandler gates console records by the level of the stage they were
// logged under. The stage is picked up from a FieldStage attr added with
// WithAttrs. The wrapped handler must already accept the floor level.
type stageLevelHandler struct {
	next      slog.Handler
	base      slog.Level
	overrides map[string]slog.Level
	level     slog.Level
}

func newStageLevelHandler(next slog.Handler, base slog.Level, overrides map[string]slog.Level) slog.Handler {
	if len(overrides) == 0 {
		return next
	}
	return &stageLevelHandler{next: next, base: base, overrides: overrides, level: base}
}

func (h *stageLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.next.Enabled(ctx, level)
}

func (h *stageLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *stageLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	for _, attr := range attrs {
		if attr.Key != FieldStage {
			continue
		}
		clone.level = h.base
		if level, ok := h.overrides[strings.ToLower(attr.Value.String())]; ok {
			clone.level = level
		}
	}
	return &clone
}

func (h *stageLevelHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}
