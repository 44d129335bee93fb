package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWarmer struct {
	calls int
	err   error
}

func (w *countingWarmer) Warmup(context.Context) (int, error) {
	w.calls++
	return 3, w.err
}

func TestStartRegistersWarmupJob(t *testing.T) {
	s, err := New(&countingWarmer{}, Config{WarmupHour: 4})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, []string{"profile-warmup"}, s.Jobs())
}

func TestWarmupTaskCallsWarmer(t *testing.T) {
	w := &countingWarmer{}
	s, err := New(w, Config{})
	require.NoError(t, err)

	s.warmup()
	w.err = errors.New("db down")
	s.warmup()

	assert.Equal(t, 2, w.calls)
}
