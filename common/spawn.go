package common

import (
	"sync/atomic"
)

var runningGRs int64

// Go spawns a goroutine and keeps track of the number of running GRs.
// We use this count to make sure all goroutines are shutdown cleanly before the process exits.
func Go(f func()) {
	atomic.AddInt64(&runningGRs, 1)
	go func() {
		defer atomic.AddInt64(&runningGRs, -1)
		f()
	}()
}

func RunningGRCount() int64 {
	return atomic.LoadInt64(&runningGRs)
}
