// Package slogsink plugs a notification Appender into log/slog.
//
// Records at or above the configured level become notification events, so a
// service can page a chat simply by logging at error level. The appender's
// own rate gate decides what actually gets sent.
package slogsink

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"notigram/internal/domain/notification"
)

var _ slog.Handler = (*Handler)(nil)

// Handler is an slog.Handler forwarding records to an Appender.
type Handler struct {
	appender notification.Appender
	level    slog.Leveler
	attrs    []slog.Attr
	groups   []string
}

// NewHandler creates a sink forwarding records at or above level.
// A nil level defaults to slog.LevelError.
func NewHandler(appender notification.Appender, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelError
	}
	return &Handler{appender: appender, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	prefix := groupPrefix(h.groups)
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, prefix, a)
		return true
	})

	h.appender.Handle(notification.Event{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Source:  source(r.PC),
		Attrs:   attrs,
	})
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = slices.Clone(h.attrs)

	prefix := groupPrefix(h.groups)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clone(h.groups), name)
	return &clone
}

func groupPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	return strings.Join(groups, ".") + "."
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = v.Any()
}

func source(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
