package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type DigestEntry struct {
	Message   string
	Level     slog.Level
	Timestamp time.Time
}

// DigestBuffer batches low-level alerts into one message per interval.
type DigestBuffer struct {
	mu       sync.Mutex
	entries  []DigestEntry
	interval time.Duration
	out      *Telegram
	stopCh   chan struct{}
	done     chan struct{}
}

func NewDigestBuffer(out *Telegram, interval time.Duration) *DigestBuffer {
	return &DigestBuffer{
		interval: interval,
		out:      out,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *DigestBuffer) Add(msg string, level slog.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, DigestEntry{
		Message:   msg,
		Level:     level,
		Timestamp: time.Now(),
	})
}

func (d *DigestBuffer) StartTicker() {
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-d.stopCh:
				d.Flush()
				return
			}
		}
	}()
}

func (d *DigestBuffer) Flush() {
	d.mu.Lock()
	snapshot := d.entries
	d.entries = nil
	d.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	d.out.broadcast(formatDigest(snapshot))
}

// Stop must only be called after StartTicker.
func (d *DigestBuffer) Stop() {
	close(d.stopCh)
	<-d.done
}

func formatDigest(entries []DigestEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Digest* \\(%d messages\\)\n\n", len(entries)))
	for _, e := range entries {
		ts := e.Timestamp.Format("15:04")
		sb.WriteString(fmt.Sprintf("`%s` %s\n%s\n\n", ts, e.Level.String(), e.Message))
	}
	return sb.String()
}
