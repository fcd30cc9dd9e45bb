package logger

import (
	"context"
	"fmt"
	"log/slog"

	"rolelink/internal/notify"
)

// Notifier receives formatted alerts.
type Notifier interface {
	SendMessageWithLevel(msg string, level slog.Level)
}

// TelegramHandler is a slog.Handler that forwards records at or above minLevel
// to a Notifier, after passing every record to the wrapped handler.
type TelegramHandler struct {
	handler  slog.Handler
	notifier Notifier
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, notifier Notifier, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
	}
}

func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	if record.Level < h.minLevel || h.notifier == nil {
		return nil
	}
	h.notifier.SendMessageWithLevel(h.format(record), record.Level)
	return nil
}

func (h *TelegramHandler) format(record slog.Record) string {
	name := record.Message
	if h.group != "" {
		name = h.group + "." + name
	}
	msg := fmt.Sprintf("*%s* `%s`", record.Level.String(), notify.Sanitize(name))

	add := func(attr slog.Attr) {
		if attr.Key == "error" {
			msg += fmt.Sprintf("\n%s: ```\n%s\n```", attr.Key, attr.Value.String())
			return
		}
		msg += notify.Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value))
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		add(attr)
		return true
	})
	return msg
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    newAttrs,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}

// ParseLevel maps a config value to a slog level, defaulting to error.
func ParseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelError
	}
	return level
}
