// Package eventloop provides the single control flow a session mutates its
// state on. Asynchronous work posts its completion back onto the loop; once
// the loop is stopped, late completions are rejected instead of applied.
package eventloop

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 256

type Loop struct {
	tasks chan func()
	done  chan struct{}

	alive    atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New() *Loop {
	return NewWithBuffer(defaultBuffer)
}

func NewWithBuffer(n int) *Loop {
	if n <= 0 {
		n = defaultBuffer
	}
	l := &Loop{
		tasks: make(chan func(), n),
		done:  make(chan struct{}),
	}
	l.alive.Store(true)
	return l
}

// Start runs the loop in its own goroutine. Calling Start more than once is a no-op.
func (l *Loop) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	l.wg.Add(1)
	go l.run()
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.tasks:
			if !l.alive.Load() {
				return
			}
			fn()
		}
	}
}

// Alive reports whether posted work will still be applied.
func (l *Loop) Alive() bool {
	return l.alive.Load()
}

// Post enqueues fn. It returns false when the loop has been stopped, in which
// case fn will never run. Post blocks while the queue is full, so tasks
// running on the loop must not post unboundedly to it.
func (l *Loop) Post(fn func()) bool {
	if !l.alive.Load() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do posts fn and waits for it to finish. It must not be called from the loop.
func (l *Loop) Do(fn func()) bool {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop marks the loop dead and discards queued tasks. It does not wait for a
// running task, so it is safe to call from the loop itself; use Wait for that.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.alive.Store(false)
		close(l.done)
	})
}

// Wait blocks until the loop goroutine has exited.
func (l *Loop) Wait() {
	l.wg.Wait()
}
