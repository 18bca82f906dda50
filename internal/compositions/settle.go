package compositions

import "sync"

// outcome is a single-assignment result. The first settle wins; later
// calls are ignored.
type outcome[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newOutcome[T any]() *outcome[T] {
	return &outcome[T]{done: make(chan struct{})}
}

// settle records v and err unless the outcome is already settled. It
// reports whether this call won.
func (o *outcome[T]) settle(v T, err error) bool {
	won := false
	o.once.Do(func() {
		o.value, o.err = v, err
		won = true
		close(o.done)
	})
	return won
}

func (o *outcome[T]) resolve(v T) bool {
	return o.settle(v, nil)
}

func (o *outcome[T]) reject(err error) bool {
	var zero T
	return o.settle(zero, err)
}

// Done is closed once the outcome is settled
func (o *outcome[T]) Done() <-chan struct{} {
	return o.done
}

// wait blocks until settled
func (o *outcome[T]) wait() (T, error) {
	<-o.done
	return o.value, o.err
}
