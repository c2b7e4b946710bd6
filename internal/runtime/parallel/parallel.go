// Package parallel splits index ranges across a bounded number of
// goroutines for the reference kernels.
package parallel

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var workers atomic.Int32

func init() {
	workers.Store(1)
}

// SetWorkers bounds the goroutines For may run at once. n < 1 means 1,
// which keeps every kernel sequential.
func SetWorkers(n int) {
	const maxInt32 = int(^uint32(0) >> 1)

	workers.Store(int32(min(max(n, 1), maxInt32)))
}

// Workers returns the configured bound.
func Workers() int { return int(workers.Load()) }

// For calls fn on contiguous chunks covering [0, n). With one worker, or
// n <= 1, fn runs once on the caller's goroutine.
func For(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}

	w := min(Workers(), n)
	if w <= 1 {
		fn(0, n)
		return
	}

	var g errgroup.Group

	chunk := (n + w - 1) / w
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)

		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}

	_ = g.Wait()
}
