package worker

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsAllSubmittedJobs(t *testing.T) {
	p := NewPool(4)
	p.Start()

	var counter int64
	const n = 50
	for i := 0; i < n; i++ {
		p.Submit(func() { atomic.AddInt64(&counter, 1) })
	}
	p.Stop()

	if got := atomic.LoadInt64(&counter); got != n {
		t.Fatalf("expected %d jobs run, got %d", n, got)
	}
}

func TestPool_ZeroOrNegativeWorkerCountDefaultsToOne(t *testing.T) {
	p := NewPool(0)
	p.Start()

	done := make(chan struct{})
	p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
	p.Stop()
}
