package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvery(t *testing.T) {
	assert.Equal(t, "@every 1m0s", Every(time.Minute))
	assert.Equal(t, "", Every(0))
	assert.Equal(t, "", Every(-time.Second))
}

func TestRegisterAndRun(t *testing.T) {
	s := New()

	calls := 0
	require.NoError(t, s.Register(Func{
		JobName: "count",
		Spec:    Every(time.Hour),
		Fn: func(ctx context.Context) error {
			calls++
			return nil
		},
	}))
	require.NoError(t, s.Register(Func{
		JobName: "manual",
		Fn:      func(ctx context.Context) error { return errors.New("boom") },
	}))

	assert.Equal(t, []string{"count", "manual"}, s.Names())

	require.NoError(t, s.Run(context.Background(), "count"))
	assert.Equal(t, 1, calls)

	assert.EqualError(t, s.Run(context.Background(), "manual"), "boom")
	assert.Error(t, s.Run(context.Background(), "missing"))
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New()
	err := s.Register(Func{JobName: "bad", Spec: "not a cron spec", Fn: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Empty(t, s.Names())
}

func TestStartStop(t *testing.T) {
	s := New()
	s.Start()
	s.Stop()
}
