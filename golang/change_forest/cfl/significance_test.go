package cfl

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constantNull float64

func (cn constantNull) Draw(*rand.Rand) float64 { return float64(cn) }

type uniformNull struct{}

func (uniformNull) Draw(rng *rand.Rand) float64 { return rng.Float64() }

func TestPValueBounds(t *testing.T) {
	test := PermutationTest{NPermutations: 199, pool: NewPool(4)}

	pValue, err := test.PValue(context.Background(), Segment{0, 10}, constantNull(math.Inf(-1)), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.005, pValue)

	pValue, err = test.PValue(context.Background(), Segment{0, 10}, constantNull(1), 1)
	require.NoError(t, err)
	assert.Equal(t, 1., pValue)
}

func TestPValueDoesNotDependOnWorkers(t *testing.T) {
	var pValues []float64
	for _, workers := range []int{1, 2, 8} {
		test := PermutationTest{NPermutations: 99, Seed: 42, pool: NewPool(workers)}
		pValue, err := test.PValue(context.Background(), Segment{3, 30}, uniformNull{}, 0.5)
		require.NoError(t, err)
		pValues = append(pValues, pValue)
	}
	assert.Equal(t, pValues[0], pValues[1])
	assert.Equal(t, pValues[0], pValues[2])
	assert.InDelta(t, 0.5, pValues[0], 0.2)
}

func TestDerivedSeed(t *testing.T) {
	assert.Equal(t, derivedSeed(1, 2, 3), derivedSeed(1, 2, 3))
	assert.NotEqual(t, derivedSeed(1, 2, 3), derivedSeed(1, 3, 2))
	assert.NotEqual(t, derivedSeed(0, 0), derivedSeed(1, 0))
}

func TestPoolRunsEveryTask(t *testing.T) {
	pool := NewPool(3)
	var count int64
	seen := make([]int64, 50)
	err := pool.ForEach(context.Background(), 50, func(ctx context.Context, i int) error {
		// nested calls run inline once the workers are busy
		return pool.ForEach(ctx, 4, func(context.Context, int) error {
			atomic.AddInt64(&count, 1)
			atomic.AddInt64(&seen[i], 1)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), count)
	for i := range seen {
		assert.Equal(t, int64(4), seen[i], "task %d", i)
	}
}

func TestPoolReturnsFirstError(t *testing.T) {
	failure := errors.New("failure")
	for _, workers := range []int{1, 4} {
		err := NewPool(workers).ForEach(context.Background(), 20, func(_ context.Context, i int) error {
			if i == 7 {
				return failure
			}
			return nil
		})
		assert.ErrorIs(t, err, failure)
	}
}

func TestPoolStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var count int64
	err := NewPool(2).ForEach(ctx, 10, func(context.Context, int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, count)
}
