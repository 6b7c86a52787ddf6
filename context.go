package kern

import (
	"sync"

	"k8s.io/klog/v2"
)

// Context owns the execution resources of one device: its stream table and
// default stream. Launch and dimension-calculation operations take the
// Context explicitly rather than reaching for ambient process state, so the
// engine stays testable with several independent contexts alive at once.
//
// A Context must be created with NewContext and destroyed with Destroy once
// no launches are in flight.
type Context struct {
	device *Device

	mu            sync.Mutex
	streams       map[int]*Stream
	nextStreamID  int
	defaultStream *Stream
	destroyed     bool
}

// NewContext creates an execution context for the host device.
func NewContext() *Context {
	ctx := &Context{
		device:  NewDevice(),
		streams: make(map[int]*Stream),
	}
	ctx.defaultStream = ctx.CreateStream()
	klog.V(2).Infof("context created: %s, %d cores, simd width %d",
		ctx.device.Name, ctx.device.NumCores, ctx.device.SIMDWidth)
	return ctx
}

// Device returns the context's device description
func (ctx *Context) Device() *Device {
	return ctx.device
}

// DefaultStream returns the stream used by launches that do not name one
func (ctx *Context) DefaultStream() *Stream {
	return ctx.defaultStream
}

// CreateStream creates a new execution stream owned by the context
func (ctx *Context) CreateStream() *Stream {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.nextStreamID++
	s := newStream(ctx.nextStreamID)
	ctx.streams[s.id] = s
	return s
}

// Synchronize waits for all operations on all of the context's streams to
// complete.
func (ctx *Context) Synchronize() {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	for _, s := range streams {
		s.Synchronize()
	}
}

// Destroy drains and closes every stream. The context must not be used
// afterwards.
func (ctx *Context) Destroy() {
	ctx.mu.Lock()
	if ctx.destroyed {
		ctx.mu.Unlock()
		return
	}
	ctx.destroyed = true
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.streams = nil
	ctx.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
	klog.V(2).Info("context destroyed")
}
