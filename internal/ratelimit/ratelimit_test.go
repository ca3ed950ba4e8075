package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	m := NewMemory(3, time.Hour)

	require.True(t, m.Allow("user-1"))
	require.True(t, m.Allow("user-1"))
	require.True(t, m.Allow("user-1"))
	require.False(t, m.Allow("user-1"))

	// Keys are independent.
	require.True(t, m.Allow("user-2"))
}

func TestMemoryLimiterWindowExpiry(t *testing.T) {
	m := NewMemory(1, 10*time.Millisecond)

	require.True(t, m.Allow("user-1"))
	require.False(t, m.Allow("user-1"))

	time.Sleep(20 * time.Millisecond)
	require.True(t, m.Allow("user-1"))
}

func TestUnlimited(t *testing.T) {
	var u Unlimited
	for i := 0; i < 100; i++ {
		require.True(t, u.Allow("anyone"))
	}
}
