package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestWindow(window time.Duration, max int) (*SlidingWindow, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSlidingWindow(window, max)
	s.now = clk.now
	return s, clk
}

func TestSlidingWindowAdmitsUpToMax(t *testing.T) {
	s, _ := newTestWindow(time.Minute, 3)

	assert.True(t, s.Allow("1.2.3.4"))
	assert.True(t, s.Allow("1.2.3.4"))
	assert.True(t, s.Allow("1.2.3.4"))
	assert.False(t, s.Allow("1.2.3.4"))
	assert.True(t, s.Allow("5.6.7.8"), "keys are independent")
}

func TestSlidingWindowSlides(t *testing.T) {
	s, clk := newTestWindow(time.Minute, 2)

	assert.True(t, s.Allow("a"))
	clk.t = clk.t.Add(30 * time.Second)
	assert.True(t, s.Allow("a"))
	assert.False(t, s.Allow("a"))

	// first entry leaves the window, second one is still inside
	clk.t = clk.t.Add(31 * time.Second)
	assert.True(t, s.Allow("a"))
	assert.False(t, s.Allow("a"))
}

func TestSlidingWindowRejectedRequestsAreNotLogged(t *testing.T) {
	s, clk := newTestWindow(time.Minute, 1)

	assert.True(t, s.Allow("a"))
	for i := 0; i < 5; i++ {
		clk.t = clk.t.Add(10 * time.Second)
		assert.False(t, s.Allow("a"))
	}
	clk.t = clk.t.Add(11 * time.Second)
	assert.True(t, s.Allow("a"))
}

func TestForget(t *testing.T) {
	s, clk := newTestWindow(time.Minute, 5)
	s.Allow("a")
	s.Allow("b")
	clk.t = clk.t.Add(2 * time.Minute)
	s.Allow("b")

	assert.Equal(t, 1, s.Forget())
	assert.True(t, s.Allow("a"))
}
