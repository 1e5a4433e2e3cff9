package upump

import (
	"context"

	"github.com/thejerf/suture/v4"
)

// Supervisor restarts a Manager's loop goroutine if it panics, without
// touching the pipe graph above it — the pump manager's own reactor is
// a best-effort, restartable service from the pipeline's point of view.
// It is a thin adapter over github.com/thejerf/suture/v4's
// Service/Supervisor pair.
type Supervisor struct {
	sup *suture.Supervisor
}

// NewSupervisor creates an (unstarted) supervisor named name.
func NewSupervisor(name string) *Supervisor {
	return &Supervisor{sup: suture.NewSimple(name)}
}

// loopService adapts a plain run/stop pair to suture.Service.
type loopService struct {
	run  func(ctx context.Context) error
	stop func()
}

func (l loopService) Serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			l.stop()
		case <-done:
		}
	}()
	defer close(done)
	return l.run(ctx)
}

// AddTimeWheel registers tw's event loop so the supervisor restarts it
// if it ever panics.
func (s *Supervisor) AddTimeWheel(tw *TimeWheel) {
	s.sup.Add(loopService{
		run: func(ctx context.Context) error {
			tw.Run()
			return nil
		},
		stop: tw.Close,
	})
}

// AddFSWatchDispatch registers fw's fsnotify dispatch loop over pumps.
func (s *Supervisor) AddFSWatchDispatch(fw *FSWatch, pumps []*pathPump) {
	s.sup.Add(loopService{
		run: func(ctx context.Context) error {
			fw.Dispatch(pumps)
			return nil
		},
		stop: fw.Close,
	})
}

// Serve blocks, running every registered loop and restarting any that
// panics, until ctx is cancelled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.sup.Serve(ctx)
}
