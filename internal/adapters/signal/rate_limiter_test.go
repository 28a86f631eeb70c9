package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_RingRateLimiter(t *testing.T) {
	t.Run("window slides", func(t *testing.T) {
		now := time.Unix(1000, 0)
		rl := NewRingRateLimiter(2, time.Minute)
		rl.now = func() time.Time { return now }

		assert.True(t, rl.Allow("a"))
		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.True(t, rl.Allow("b"), "limits are per user")

		now = now.Add(61 * time.Second)
		assert.True(t, rl.Allow("a"))
	})

	t.Run("disabled", func(t *testing.T) {
		rl := NewRingRateLimiter(0, time.Minute)
		for i := 0; i < 10; i++ {
			assert.True(t, rl.Allow("a"))
		}
		var nilLimiter *RingRateLimiter
		assert.True(t, nilLimiter.Allow("a"))
	})
}
