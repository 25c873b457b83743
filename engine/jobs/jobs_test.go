package jobs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolValidatesArguments(t *testing.T) {
	_, err := NewPool(0, 8)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewPool(2, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestPoolRunsTasksToCompletion(t *testing.T) {
	p, err := NewPool(4, 16)
	require.NoError(t, err)

	var completed int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		p.Submit(Task{
			OnStart: func() (interface{}, error) { return nil, nil },
			OnComplete: func(interface{}) {
				atomic.AddInt64(&completed, 1)
				wg.Done()
			},
			OnFailure: func(error) { wg.Done() },
		})
	}
	wg.Wait()
	require.NoError(t, p.Shutdown())

	assert.Equal(t, int64(32), completed)
}

func TestPoolReportsFailures(t *testing.T) {
	p, err := NewPool(1, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var got error
	p.Submit(Task{
		OnStart: func() (interface{}, error) { return nil, fmt.Errorf("decode failed") },
		OnFailure: func(err error) {
			got = err
			wg.Done()
		},
	})
	wg.Wait()
	require.NoError(t, p.Shutdown())

	assert.EqualError(t, got, "decode failed")
}

func TestForkJoinRunsAllAndKeepsFirstError(t *testing.T) {
	p := Default()
	defer p.Shutdown()

	var ran int64
	err := p.ForkJoin(
		func() error { atomic.AddInt64(&ran, 1); return nil },
		func() error { atomic.AddInt64(&ran, 1); return fmt.Errorf("boom") },
		func() error { atomic.AddInt64(&ran, 1); return nil },
	)

	// Every function runs to completion even when one fails.
	assert.Equal(t, int64(3), ran)
	assert.EqualError(t, err, "boom")
}

func TestForkJoinEmptyIsNoop(t *testing.T) {
	p := Default()
	defer p.Shutdown()
	assert.NoError(t, p.ForkJoin())
}
