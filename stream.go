package kern

import (
	"sync"

	"k8s.io/klog/v2"
)

// Stream represents an ordered sequence of operations that execute
// asynchronously. Operations within a stream execute in order, but
// operations in different streams may execute concurrently.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// newStream creates a stream and starts its worker goroutine
func newStream(id int) *Stream {
	s := &Stream{
		id:    id,
		tasks: make(chan func(), StreamQueueDepth),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// worker processes tasks for a stream
func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Submit adds a task to the stream. Tasks run strictly in submission order.
func (s *Stream) Submit(task func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.wg.Add(1)
	s.tasks <- task
	return nil
}

// Synchronize waits for all tasks in the stream to complete
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// close stops the worker after draining queued tasks
func (s *Stream) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.tasks)
	<-s.done
	klog.V(2).Infof("stream %d closed", s.id)
}

// Event is a completion handle for asynchronously submitted work. An Event
// is signaled exactly once; Wait may be called any number of times from any
// goroutine.
type Event struct {
	done chan struct{}
	err  error
}

// newEvent creates an unsignaled event
func newEvent() *Event {
	return &Event{done: make(chan struct{})}
}

// completedEvent returns an already-signaled event carrying err
func completedEvent(err error) *Event {
	e := newEvent()
	e.signal(err)
	return e
}

// signal marks the event complete with the given error
func (e *Event) signal(err error) {
	e.err = err
	close(e.done)
}

// Wait blocks until the event is signaled and returns the error the work
// completed with.
func (e *Event) Wait() error {
	<-e.done
	return e.err
}

// Done returns a channel closed when the event is signaled
func (e *Event) Done() <-chan struct{} {
	return e.done
}
