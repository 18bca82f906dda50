package compositions

// Resource is either owned, with a teardown the orchestrator must run, or
// borrowed from the caller and never torn down here.
type Resource[T any] struct {
	value   T
	owned   bool
	release func() error
}

// Owned wraps a resource this resolution acquired
func Owned[T any](v T, release func() error) Resource[T] {
	return Resource[T]{value: v, owned: true, release: release}
}

// Borrowed wraps a caller-supplied resource
func Borrowed[T any](v T) Resource[T] {
	return Resource[T]{value: v}
}

// Value returns the wrapped resource
func (r Resource[T]) Value() T {
	return r.value
}

// IsOwned reports whether Release tears the resource down
func (r Resource[T]) IsOwned() bool {
	return r.owned
}

// Release runs the teardown of an owned resource. Borrowed resources are
// left untouched.
func (r Resource[T]) Release() error {
	if !r.owned || r.release == nil {
		return nil
	}
	return r.release()
}
