package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 24 * time.Hour, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2026, 6, 30, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), s.NextTick(now))

	midnight := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC), s.NextTick(midnight))
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), s.BucketStart(now))
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())
	now := time.Date(2026, 6, 30, 13, 45, 0, 0, time.UTC)

	assert.Equal(t, now.Add(time.Hour), s.NextTick(now))
	assert.Equal(t, now, s.BucketStart(now))
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { New(Options{}, zerolog.Nop()) })
}

func TestRunOnStartFiresCurrentBucket(t *testing.T) {
	s := New(Options{Interval: 24 * time.Hour, AlignToStart: true, RunOnStart: true}, zerolog.Nop())
	fixed := time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	var got time.Time
	err := s.Run(ctx, func(_ context.Context, bucket time.Time) error {
		got = bucket
		cancel()
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), got)
}

func TestRunSurvivesFailingTick(t *testing.T) {
	s := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var calls atomic.Int32
	err := s.Run(ctx, func(context.Context, time.Time) error {
		if calls.Add(1) >= 3 {
			cancel()
		}
		return errors.New("boom")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}
