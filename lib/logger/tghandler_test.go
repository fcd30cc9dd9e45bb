package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"rolelink/lib/sl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	msg   string
	level slog.Level
}

type fakeNotifier struct {
	sent []captured
}

func (f *fakeNotifier) SendMessageWithLevel(msg string, level slog.Level) {
	f.sent = append(f.sent, captured{msg: msg, level: level})
}

func TestTelegramHandlerForwardsAboveMinLevel(t *testing.T) {
	var buf bytes.Buffer
	n := &fakeNotifier{}
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(NewTelegramHandler(base, n, slog.LevelError)).With(sl.Module("redeem"))

	log.Info("role granted")
	log.Error("get guild", sl.Err(errors.New("timeout")), sl.Link("abc_123"))

	assert.Contains(t, buf.String(), "role granted", "lower levels still reach the base handler")
	require.Len(t, n.sent, 1)
	msg := n.sent[0].msg
	assert.Equal(t, slog.LevelError, n.sent[0].level)
	assert.Contains(t, msg, "*ERROR* `get guild`")
	assert.Contains(t, msg, "mod: redeem")
	assert.Contains(t, msg, "timeout")
	assert.Contains(t, msg, `abc\_123`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelError, ParseLevel("nonsense"))
}
