package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientLimiter_RefillsAndSweeps(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewClientLimiter(RateLimitOptions{Requests: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	ok, _, _ := l.Allow("a")
	require.True(t, ok)
	ok, _, _ = l.Allow("a")
	require.True(t, ok)
	ok, _, retry := l.Allow("a")
	require.False(t, ok)
	require.InDelta(t, float64(30*time.Second), float64(retry), float64(time.Millisecond))

	// one token every Window/Requests
	now = now.Add(31 * time.Second)
	ok, _, _ = l.Allow("a")
	require.True(t, ok)

	// idle buckets are dropped after a full window
	now = now.Add(2 * time.Minute)
	_, _, _ = l.Allow("b")
	l.mu.Lock()
	_, kept := l.clients["a"]
	l.mu.Unlock()
	require.False(t, kept)
}
