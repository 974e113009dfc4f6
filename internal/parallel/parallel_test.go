package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}

	var counter int64
	seen := make([]int32, 1000)
	err := For(len(seen), func(i int) error {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), counter)
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("index %d visited %d times", i, n)
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var order []int
	err := For(5, func(i int) error {
		order = append(order, i)
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFor_Error(t *testing.T) {
	errStop := errors.New("stop")
	for _, cfg := range []Config{
		{Enabled: false},
		{Enabled: true, NumWorkers: 8, MinChunkSize: 8},
	} {
		err := For(512, func(i int) error {
			if i == 100 {
				return errStop
			}
			return nil
		}, cfg)
		assert.ErrorIs(t, err, errStop)
	}
}

func TestChunks(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}

	assert.Nil(t, Chunks(0, cfg))
	assert.Equal(t, []Range{{0, 5}}, Chunks(5, cfg))
	assert.Equal(t, []Range{{0, 25}, {25, 50}, {50, 75}, {75, 100}}, Chunks(100, cfg))
	assert.Equal(t, []Range{{0, 10}, {10, 20}, {20, 22}}, Chunks(22, Config{Enabled: true, NumWorkers: 8, MinChunkSize: 10}))

	// Chunks cover [0, n) without gaps.
	chunks := Chunks(1001, DefaultConfig())
	next := 0
	for _, c := range chunks {
		assert.Equal(t, next, c.Start)
		next = c.End
	}
	assert.Equal(t, 1001, next)
}
