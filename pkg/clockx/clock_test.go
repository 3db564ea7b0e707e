package clockx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMockAdvanceFiresTimersInOrder(t *testing.T) {
	t.Parallel()

	clock := NewMock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	var fired []string
	clock.AfterFunc(2*time.Minute, func() { fired = append(fired, "second") })
	clock.AfterFunc(1*time.Minute, func() { fired = append(fired, "first") })
	clock.AfterFunc(time.Hour, func() { fired = append(fired, "later") })

	clock.Advance(5 * time.Minute)
	require.Equal(t, []string{"first", "second"}, fired)

	clock.Advance(time.Hour)
	require.Equal(t, []string{"first", "second", "later"}, fired)
}

func TestMockStopPreventsFiring(t *testing.T) {
	t.Parallel()

	clock := NewMock(time.Now())

	fired := false
	timer := clock.AfterFunc(time.Minute, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	clock.Advance(time.Hour)
	require.False(t, fired)
}

func TestMockNowAdvances(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMock(start)
	require.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), clock.Now())
}
