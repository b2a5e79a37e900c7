package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Real{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	assert.NoError(t, f.Sleep(context.Background(), 5*time.Second))
	assert.NoError(t, f.Sleep(context.Background(), time.Minute))

	assert.Equal(t, start.Add(65*time.Second), f.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, time.Minute}, f.Sleeps())
}
