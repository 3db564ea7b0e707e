package service

import (
	"testing"
	"time"

	"github.com/denkrupka/portalgate/internal/gateway/domain"
	"github.com/denkrupka/portalgate/pkg/clockx"
	"github.com/denkrupka/portalgate/pkg/cookiejar"
	"github.com/stretchr/testify/require"
)

func TestChallengeRegistry(t *testing.T) {
	t.Parallel()

	newChallenge := func() *domain.PendingChallenge {
		return &domain.PendingChallenge{
			Credentials: domain.Credentials{Username: "alice", Password: "secret"},
			Jar:         cookiejar.New(),
		}
	}

	t.Run("add mints distinct temp ids", func(t *testing.T) {
		clock := clockx.NewMock(time.Now())
		reg := NewChallengeRegistry(clock, 0)

		a := reg.Add(newChallenge())
		b := reg.Add(newChallenge())
		require.NotEmpty(t, a)
		require.NotEqual(t, a, b)
		require.Equal(t, 2, reg.Len())
	})

	t.Run("peek does not consume", func(t *testing.T) {
		clock := clockx.NewMock(time.Now())
		reg := NewChallengeRegistry(clock, 0)

		id := reg.Add(newChallenge())

		for i := 0; i < 3; i++ {
			ch, ok := reg.Peek(id)
			require.True(t, ok)
			require.Equal(t, "alice", ch.Credentials.Username)
		}
		require.Equal(t, 1, reg.Len())
	})

	t.Run("consume is single use", func(t *testing.T) {
		clock := clockx.NewMock(time.Now())
		reg := NewChallengeRegistry(clock, 0)

		id := reg.Add(newChallenge())

		ch, ok := reg.Consume(id)
		require.True(t, ok)
		require.Equal(t, id, ch.TempID)

		_, ok = reg.Consume(id)
		require.False(t, ok)
		_, ok = reg.Peek(id)
		require.False(t, ok)
	})

	t.Run("expires after the ttl", func(t *testing.T) {
		clock := clockx.NewMock(time.Now())
		reg := NewChallengeRegistry(clock, 10*time.Minute)

		id := reg.Add(newChallenge())

		clock.Advance(9 * time.Minute)
		_, ok := reg.Peek(id)
		require.True(t, ok)

		clock.Advance(2 * time.Minute)
		_, ok = reg.Peek(id)
		require.False(t, ok)
		_, ok = reg.Consume(id)
		require.False(t, ok)
	})

	t.Run("consume before expiry stops the timer", func(t *testing.T) {
		clock := clockx.NewMock(time.Now())
		reg := NewChallengeRegistry(clock, 10*time.Minute)

		id := reg.Add(newChallenge())
		_, ok := reg.Consume(id)
		require.True(t, ok)

		// The scheduled deletion must not fire on a consumed id.
		clock.Advance(time.Hour)
		require.Equal(t, 0, reg.Len())
	})

	t.Run("remove discards silently", func(t *testing.T) {
		clock := clockx.NewMock(time.Now())
		reg := NewChallengeRegistry(clock, 0)

		id := reg.Add(newChallenge())
		reg.Remove(id)
		reg.Remove(id) // second remove is a no-op

		_, ok := reg.Peek(id)
		require.False(t, ok)
	})
}
