package loop

import "sync"

// Future is the read side of a one-shot asynchronous result. The loop
// polls Done at cycle boundaries rather than blocking on Wait.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewPromise returns a future and the function that settles it. Settling
// twice is a no-op.
func NewPromise() (*Future, func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.settle
}

// Completed returns an already-settled future carrying err.
func Completed(err error) *Future {
	f, settle := NewPromise()
	settle(err)
	return f
}

func (f *Future) settle(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done reports whether the future has settled, without blocking.
func (f *Future) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Err returns the settled error. Valid only after Done reports true.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles and returns its error. Never call
// it from inside a work item: the loop thread settles futures, so waiting
// there deadlocks. It is meant for code outside the loop, like a caller
// of Start.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}
