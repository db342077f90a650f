package runtime

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs a set of named workers and shuts them down in reverse
// registration order. The first worker error cancels the remaining
// workers and is returned by Wait.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error

	runCtx context.Context
	cancel context.CancelFunc
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Add registers a worker. run should block until ctx is cancelled; closeF
// may be nil when the worker has nothing to release.
func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCtx, s.cancel = context.WithCancel(ctx)
	for _, w := range s.workers {
		w := w
		s.wg.Add(1)
		log.WithField("worker", w.name).Debug("Starting worker")
		go func() {
			defer s.wg.Done()
			if err := w.run(s.runCtx); err != nil {
				log.WithField("worker", w.name).WithError(err).Error("Worker exited with error")
				s.errOnce.Do(func() {
					s.err = err
					s.cancel()
				})
			}
		}()
	}
	return nil
}

// Wait blocks until the context is cancelled or a worker fails, then
// closes the workers in reverse order and waits for their run functions
// to return.
func (s *Supervisor) Wait(ctx context.Context) error {
	s.mu.Lock()
	runCtx := s.runCtx
	s.mu.Unlock()
	if runCtx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
	case <-runCtx.Done():
	}

	for i := len(s.workers) - 1; i >= 0; i-- {
		w := s.workers[i]
		if w.closeF == nil {
			continue
		}
		log.WithField("worker", w.name).Debug("Closing worker")
		if err := w.closeF(); err != nil {
			log.WithField("worker", w.name).WithError(err).Warn("Worker close failed")
		}
	}
	s.wg.Wait()
	return s.err
}
