// Package parallel provides the shared-nothing loop parallelism used by the
// CPU backend and the batch collation in the data loader.
package parallel

import (
	"runtime"

	"github.com/sourcegraph/conc"
)

// Config controls how For splits work across goroutines.
type Config struct {
	Enabled      bool
	NumWorkers   int // upper bound on goroutines per call
	MinChunkSize int // below this n the loop stays sequential
}

// DefaultConfig sizes the worker pool to the machine.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For runs f(i) for every i in [0, n), possibly concurrently. Iterations
// must not depend on each other. Small loops run inline; a panic in any
// iteration is repropagated on the calling goroutine.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var wg conc.WaitGroup
	for start := 0; start < n; start += chunk {
		s, e := start, min(start+chunk, n)
		wg.Go(func() {
			for i := s; i < e; i++ {
				f(i)
			}
		})
	}
	wg.Wait()
}
