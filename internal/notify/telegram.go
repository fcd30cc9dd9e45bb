// Package notify delivers operator alerts to Telegram admin chats.
//
// Records at error level and above are sent at once; lower levels are
// collected into a digest and flushed on an interval.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"rolelink/internal/config"
	"rolelink/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

const maxTelegramMessageLen = 4096

type sender interface {
	SendMessage(chatId int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error)
}

type Telegram struct {
	log     *slog.Logger
	api     sender
	chatIDs []int64
	digest  *DigestBuffer
	started bool
}

func NewTelegram(conf config.TelegramConfig, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBot(conf.ApiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	return newTelegram(api, conf, log), nil
}

func newTelegram(api sender, conf config.TelegramConfig, log *slog.Logger) *Telegram {
	t := &Telegram{
		log:     log.With(sl.Module("notify")),
		api:     api,
		chatIDs: conf.AdminChatIDs,
	}
	if conf.DigestInterval > 0 {
		t.digest = NewDigestBuffer(t, conf.DigestInterval)
	}
	return t
}

// Start runs the digest ticker, if configured.
func (t *Telegram) Start() {
	if t.digest != nil && !t.started {
		t.started = true
		t.digest.StartTicker()
	}
}

// Stop flushes pending digest entries.
func (t *Telegram) Stop() {
	if t.started {
		t.started = false
		t.digest.Stop()
	}
}

// SendMessageWithLevel routes a MarkdownV2 message to every admin chat.
func (t *Telegram) SendMessageWithLevel(msg string, level slog.Level) {
	if level < slog.LevelError && t.digest != nil {
		t.digest.Add(msg, level)
		return
	}
	t.broadcast(msg)
}

func (t *Telegram) broadcast(msg string) {
	for _, id := range t.chatIDs {
		for _, part := range splitMessage(msg, maxTelegramMessageLen) {
			t.plainResponse(id, part)
		}
	}
}

func (t *Telegram) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		// logging at warn keeps the failure out of the alert handler
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Warn("sending plain message", sl.Err(err))
		}
	}
}

// Sanitize escapes MarkdownV2 reserved characters.
func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*`>~"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}
