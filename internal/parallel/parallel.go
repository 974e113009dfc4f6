// Package parallel splits index ranges across goroutines for host kernels.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1024, // Texel copies are cheap; keep chunks large.
	}
}

// Range is the half-open interval [Start, End).
type Range struct {
	Start, End int
}

// Chunks splits [0, n) into contiguous ranges, one per worker.
// A single range is returned when parallelism is disabled or n is small.
func Chunks(n int, cfg Config) []Range {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return []Range{{0, n}}
	}
	size := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	chunks := make([]Range, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		chunks = append(chunks, Range{start, min(start+size, n)})
	}
	return chunks
}

// For executes f(i) for i in [0, n) and returns the first error.
// After an error, the other chunks stop at their next iteration.
func For(n int, f func(i int) error, cfg Config) error {
	chunks := Chunks(n, cfg)
	if len(chunks) <= 1 {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(cfg.NumWorkers)
	for _, c := range chunks {
		g.Go(func() error {
			for i := c.Start; i < c.End; i++ {
				if ctx.Err() != nil {
					return nil
				}
				if err := f(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
