package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViewOpen(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := New()
	m.Now = func() time.Time { return now }
	m.State = "open"
	m.SessionID = "3f2a9c1e-77aa-4c55-9e0b-1234567890ab"
	m.FrameWidth, m.FrameHeight = 1280, 720
	m.FrameAt = now.Add(-3 * time.Second)
	m.Width = 120

	v := m.View()
	assert.Contains(t, v, "open")
	assert.Contains(t, v, "session 3f2a9c1e")
	assert.NotContains(t, v, "77aa")
	assert.Contains(t, v, "1280x720 3s")
	assert.NotContains(t, v, "processing")
	assert.NotContains(t, v, "retry")
}

func TestViewReconnecting(t *testing.T) {
	m := New()
	m.State = "reconnecting"
	m.Attempt, m.MaxAttempt, m.RetryIn = 2, 3, 2*time.Second
	m.Processing = true
	m.Spinner = "*"
	m.Width = 120

	v := m.View()
	assert.Contains(t, v, "no frame")
	assert.Contains(t, v, "* processing")
	assert.Contains(t, v, "retry 2/3 in 2s")
}

func TestShortID(t *testing.T) {
	m := New()
	m.SessionID = "abc"
	assert.Equal(t, "abc", m.ShortID())
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "now", formatAge(200*time.Millisecond))
	assert.Equal(t, "42s", formatAge(42*time.Second))
	assert.Equal(t, "3m", formatAge(3*time.Minute+10*time.Second))
	assert.Equal(t, "2h", formatAge(2*time.Hour))
}
