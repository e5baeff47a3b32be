package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wberr "whiteboard/internal/errors"
)

func TestTrackerCompleteWakesWaiter(t *testing.T) {
	tr := NewTracker[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		tr.Complete(7)
	}()
	v, timedOut := tr.Await(time.Second)
	assert.False(t, timedOut)
	assert.Equal(t, 7, v)
}

func TestTrackerTimeoutNotEarly(t *testing.T) {
	tr := NewTracker[int]()
	const d = 50 * time.Millisecond
	start := time.Now()
	_, timedOut := tr.Await(d)
	assert.True(t, timedOut)
	assert.GreaterOrEqual(t, time.Since(start), d)
}

func TestTrackerFirstCompleteWins(t *testing.T) {
	tr := NewTracker[string]()
	assert.True(t, tr.Complete("first"))
	assert.False(t, tr.Complete("second"))

	v, timedOut := tr.Await(time.Millisecond)
	assert.False(t, timedOut)
	assert.Equal(t, "first", v)
}

func TestTrackerTimeoutReturnsStaleValue(t *testing.T) {
	tr := NewTracker[string]()
	tr.Complete("old")
	tr.Reset()

	v, timedOut := tr.Await(20 * time.Millisecond)
	assert.True(t, timedOut)
	assert.Equal(t, "old", v)

	// A fresh cycle accepts a new value.
	assert.True(t, tr.Complete("new"))
	v, timedOut = tr.Await(time.Millisecond)
	assert.False(t, timedOut)
	assert.Equal(t, "new", v)
}

func TestTrackerWaitZeroValueOnFirstTimeout(t *testing.T) {
	tr := NewTracker[[]string]()
	v, err := tr.Wait(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, wberr.ErrTimeout)
	assert.Nil(t, v)
}

func TestTrackerWaitCancelled(t *testing.T) {
	tr := NewTracker[int]()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := tr.Wait(ctx, time.Minute)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestTrackerCompletedBeforeCancel(t *testing.T) {
	tr := NewTracker[int]()
	tr.Complete(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := tr.Wait(ctx, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
