package shutdown

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
)

// ErrCoordinatorMisuse is the panic value raised when the coordinator is used
// out of order.
const ErrCoordinatorMisuse = errors.Sentinel("shutdown coordinator misuse")

// State is the lifecycle position of a Coordinator.
type State int32

const (
	Idle State = iota
	Running
	ShuttingDown
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Result describes how a shutdown went.
type Result struct {
	// External is true when the context ended before every worker finished.
	External bool
	// Drain is the time spent waiting for workers after the stop broadcast.
	Drain time.Duration
	// Stragglers is the number of handles still held when the drain ended.
	Stragglers int
}

// Coordinator lets independent workers register, be told to stop and report
// completion. The zero value is not usable, use New.
type Coordinator struct {
	mu          sync.Mutex
	state       atomic.Int32
	outstanding atomic.Int64
	stop        chan struct{}
	// idle receives a token every time the outstanding count drops to zero.
	idle chan struct{}
}

func New() *Coordinator {
	return &Coordinator{
		stop: make(chan struct{}),
		idle: make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Outstanding returns the number of handles not yet released.
func (c *Coordinator) Outstanding() int {
	return int(c.outstanding.Load())
}

// Register adds a worker. It must be called before the worker starts and
// panics with ErrCoordinatorMisuse once shutdown has begun.
func (c *Coordinator) Register() *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.State(); s >= ShuttingDown {
		panic(fmt.Errorf("%w: register while %s", ErrCoordinatorMisuse, s))
	}
	c.outstanding.Add(1)
	return &Handle{c: c, done: make(chan struct{})}
}

func (c *Coordinator) release() {
	if c.outstanding.Add(-1) == 0 {
		select {
		case c.idle <- struct{}{}:
		default:
		}
	}
}

// RunUntilShutdown blocks until ctx is done or every registered worker has
// released its handle. It then broadcasts stop and waits up to timeout for the
// remaining handles. Workers still running after timeout are abandoned.
// Calling it more than once panics with ErrCoordinatorMisuse.
func (c *Coordinator) RunUntilShutdown(ctx context.Context, timeout time.Duration) Result {
	if !c.state.CompareAndSwap(int32(Idle), int32(Running)) {
		panic(fmt.Errorf("%w: run while %s", ErrCoordinatorMisuse, c.State()))
	}

	var result Result
	result.External = !c.waitTrigger(ctx)

	c.mu.Lock()
	c.state.Store(int32(ShuttingDown))
	close(c.stop)
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"workers":  c.Outstanding(),
		"external": result.External,
	}).Debug("broadcasting shutdown")

	start := time.Now()
	result.Stragglers = c.drain(timeout)
	result.Drain = time.Since(start)
	c.state.Store(int32(Done))

	if result.Stragglers > 0 {
		log.WithFields(log.Fields{
			"stragglers": result.Stragglers,
			"timeout":    timeout,
		}).Warn("shutdown timed out, abandoning workers")
	}
	return result
}

// waitTrigger returns true when every worker finished on its own and false
// when ctx ended first.
func (c *Coordinator) waitTrigger(ctx context.Context) bool {
	for {
		if c.Outstanding() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-c.idle:
			// A stale token may remain from a worker that finished before
			// another registered, so the count is checked again.
		}
	}
}

func (c *Coordinator) drain(timeout time.Duration) int {
	if c.Outstanding() == 0 {
		return 0
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-c.idle:
			if c.Outstanding() == 0 {
				return 0
			}
		case <-timer.C:
			return c.Outstanding()
		}
	}
}

// Handle is held by one worker between Register and Release.
type Handle struct {
	c        *Coordinator
	done     chan struct{}
	released atomic.Bool
}

// Stopping is closed once the coordinator broadcasts stop.
func (h *Handle) Stopping() <-chan struct{} {
	return h.c.stop
}

// Wait blocks until the handle is released or stop is broadcast.
func (h *Handle) Wait() {
	select {
	case <-h.done:
	case <-h.c.stop:
	}
}

// Release signals that the worker finished. Only the first call counts.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	close(h.done)
	h.c.release()
}
