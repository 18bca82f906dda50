package sandbox

import (
	"context"
	"sync"
)

// loop serializes all access to a page's VM onto one goroutine.
type loop struct {
	jobs   chan func()
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func newLoop() *loop {
	return &loop{
		jobs:   make(chan func(), 64),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// run executes jobs until stop is called. before and after wrap every job.
func (l *loop) run(before, after func()) {
	defer close(l.exited)
	for {
		select {
		case <-l.done:
			return
		default:
		}

		select {
		case <-l.done:
			return
		case job := <-l.jobs:
			before()
			job()
			after()
		}
	}
}

// submit queues job. It fails once the loop is stopped or ctx ends.
func (l *loop) submit(ctx context.Context, job func()) error {
	select {
	case <-l.done:
		return ErrPageClosed
	default:
	}

	select {
	case l.jobs <- job:
		return nil
	case <-l.done:
		return ErrPageClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues job from a background goroutine such as a timer.
func (l *loop) post(job func()) {
	_ = l.submit(context.Background(), job)
}

// stop ends the loop after the running job and waits for it to exit.
func (l *loop) stop() {
	l.once.Do(func() { close(l.done) })
	<-l.exited
}

func (l *loop) stopped() <-chan struct{} {
	return l.done
}
