package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsBurstThenThrottles(t *testing.T) {
	l := NewLimiter(1, 2)
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"), "third immediate request should exceed burst of 2")
}

func TestLimiter_TracksClientsIndependently(t *testing.T) {
	l := NewLimiter(1, 1)
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"), "a separate client should have its own bucket")
	assert.False(t, l.Allow("client-a"))
}

func TestLimiter_StatsUnknownClient(t *testing.T) {
	l := NewLimiter(1, 1)
	_, _, known := l.Stats("nobody")
	assert.False(t, known)
}

func TestLimiter_ResetClearsBuckets(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow("client-a")
	assert.Equal(t, 1, l.clientCount())
	l.Reset()
	assert.Equal(t, 0, l.clientCount())
}
