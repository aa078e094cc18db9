// Package scheduler bridges a session.Manager's fleet of browser tabs and a
// worker.Pool, dispatching one collection job per session on a fixed
// interval. Adapted from the teacher's request-dispatch scheduler, with
// "submit a job against each active HTTP session" replaced by "submit a
// collection job against each active browser session."
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/arjunkade/browserentropy/internal/engine/logger"
	"github.com/arjunkade/browserentropy/internal/engine/metrics"
	"github.com/arjunkade/browserentropy/internal/engine/session"
	"github.com/arjunkade/browserentropy/internal/engine/worker"
)

// JobFunc is invoked once per session, per dispatch tick.
type JobFunc func(ctx context.Context, s *session.BrowserSession)

// Scheduler periodically fans a JobFunc out across every session in a
// Manager, via a worker.Pool.
type Scheduler struct {
	manager *session.Manager
	pool    *worker.Pool
	log     *logger.Logger
	metrics *metrics.Metrics
	ctx     context.Context
	cancel  context.CancelFunc

	stopOnce sync.Once
	stopped  chan struct{}
}

// New returns a Scheduler dispatching against manager's sessions through
// pool.
func New(manager *session.Manager, pool *worker.Pool, log *logger.Logger, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		manager: manager,
		pool:    pool,
		log:     log,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins dispatching job against every session in the manager's
// fleet, once every interval, until Stop is called. Runs in its own
// goroutine; Start returns immediately.
func (s *Scheduler) Start(interval time.Duration, job JobFunc) {
	go s.loop(interval, job)
}

func (s *Scheduler) loop(interval time.Duration, job JobFunc) {
	defer close(s.stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.dispatch(job)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(job)
		}
	}
}

func (s *Scheduler) dispatch(job JobFunc) {
	for _, slot := range s.manager.Slots() {
		sess, ok := s.manager.GetSession(slot)
		if !ok {
			continue
		}
		s.pool.Submit(func() {
			if s.metrics != nil {
				s.metrics.IncrementTotal()
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						if s.log != nil {
							s.log.Errorf("scheduler: job panicked for session %s: %v", sess.ID, r)
						}
						if s.metrics != nil {
							s.metrics.IncrementFailed()
						}
					}
				}()
				job(s.ctx, sess)
				if s.metrics != nil {
					s.metrics.IncrementSuccess()
				}
			}()
		})
	}
}

// Stop halts dispatching. Idempotent: calling it more than once is safe and
// the second call returns immediately.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.stopped
	})
}
