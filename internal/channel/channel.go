// Package channel implements Hemlock's Channel heap variant: rendezvous
// (capacity 0) and buffered (capacity >= 1) semantics, send/recv with
// timeouts, close-broadcast, and a busy-poll select/poll implementation.
package channel

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/metrics"
	"github.com/hemlang/hemlock/internal/value"
)

var nextChannelID atomic.Uint64

// ChannelObj is the heap-allocated channel handle. Capacity 0 behaves as
// a rendezvous: Send blocks until a Recv is ready to take the value
// directly; capacity >= 1 behaves as a ring buffer.
type ChannelObj struct {
	value.Header

	mu        sync.Mutex
	notEmpty  *sync.Cond
	notFull   *sync.Cond
	rendez    *sync.Cond

	id       string
	capacity int
	buf      []value.Value
	head, tail, count int

	closed bool

	// rendezvous-only state
	senderWaiting, receiverWaiting bool
	rendezVal value.Value
	rendezTaken bool
}

func (c *ChannelObj) Kind() string { return "channel" }

// New creates a Channel with the given capacity (0 = rendezvous).
func New(capacity int) value.Value {
	id := strconv.FormatUint(nextChannelID.Add(1), 10)
	c := &ChannelObj{Header: value.NewHeader(), id: id, capacity: capacity}
	c.notEmpty = sync.NewCond(&c.mu)
	c.notFull = sync.NewCond(&c.mu)
	c.rendez = sync.NewCond(&c.mu)
	if capacity > 0 {
		c.buf = make([]value.Value, capacity)
	}
	return value.Value{Tag: value.TagHeap, Heap: c}
}

// Send blocks until the value is accepted or the channel is closed, in
// which case it returns ChannelClosed.
func (c *ChannelObj) Send(v value.Value) error {
	return c.SendTimeout(v, -1)
}

// SendTimeout blocks for at most timeout (negative means no timeout)
// before giving up with a TaskError("send timeout").
func (c *ChannelObj) SendTimeout(v value.Value, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, hasDeadline := deadlineFor(timeout)

	if c.capacity == 0 {
		for !c.closed && c.rendezTaken {
			if !c.waitUntil(c.rendez, deadline, hasDeadline) {
				return herr.New(herr.TaskError, "send timeout")
			}
		}
		if c.closed {
			return herr.New(herr.ChannelClosed, "send on closed channel")
		}
		c.rendezVal = v
		c.rendezTaken = true
		c.senderWaiting = true
		c.rendez.Broadcast()
		for !c.closed && c.rendezTaken {
			if !c.waitUntil(c.rendez, deadline, hasDeadline) {
				c.rendezTaken = false
				c.senderWaiting = false
				return herr.New(herr.TaskError, "send timeout")
			}
		}
		c.senderWaiting = false
		if c.closed && c.rendezTaken {
			c.rendezTaken = false
			c.rendezVal = value.Value{}
			return herr.New(herr.ChannelClosed, "send on closed channel")
		}
		return nil
	}

	for !c.closed && c.count == c.capacity {
		if !c.waitUntil(c.notFull, deadline, hasDeadline) {
			return herr.New(herr.TaskError, "send timeout")
		}
	}
	if c.closed {
		return herr.New(herr.ChannelClosed, "send on closed channel")
	}
	c.buf[c.tail] = v
	c.tail = (c.tail + 1) % c.capacity
	c.count++
	c.reportDepth()
	c.notEmpty.Signal()
	return nil
}

// Recv blocks until a value is available or the channel closes, in
// which case it returns (zero Value, false).
func (c *ChannelObj) Recv() (value.Value, bool) {
	v, err := c.RecvTimeout(-1)
	return v, err == nil
}

// RecvTimeout blocks for at most timeout before giving up with a
// TaskError("recv timeout"); on a closed-and-drained channel it returns
// herr.ChannelClosed.
func (c *ChannelObj) RecvTimeout(timeout time.Duration) (value.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, hasDeadline := deadlineFor(timeout)

	if c.capacity == 0 {
		c.receiverWaiting = true
		for !c.closed && !c.rendezTaken {
			if !c.waitUntil(c.rendez, deadline, hasDeadline) {
				c.receiverWaiting = false
				return value.Value{}, herr.New(herr.TaskError, "recv timeout")
			}
		}
		if !c.rendezTaken && c.closed {
			c.receiverWaiting = false
			return value.Value{}, herr.New(herr.ChannelClosed, "recv on closed channel")
		}
		v := c.rendezVal
		c.rendezTaken = false
		c.receiverWaiting = false
		c.rendez.Broadcast()
		return v, nil
	}

	for !c.closed && c.count == 0 {
		if !c.waitUntil(c.notEmpty, deadline, hasDeadline) {
			return value.Value{}, herr.New(herr.TaskError, "recv timeout")
		}
	}
	if c.count == 0 {
		return value.Value{}, herr.New(herr.ChannelClosed, "recv on closed channel")
	}
	v := c.buf[c.head]
	c.buf[c.head] = value.Value{}
	c.head = (c.head + 1) % c.capacity
	c.count--
	c.reportDepth()
	c.notFull.Signal()
	return v, nil
}

// reportDepth publishes the current buffered depth to internal/metrics;
// caller must hold c.mu.
func (c *ChannelObj) reportDepth() {
	if m := metrics.Global(); m != nil {
		m.SetChannelDepth(c.id, c.count)
	}
}

// Close marks the channel closed and broadcasts to every waiter on all
// three condition variables, per the documented close-broadcast
// semantics.
func (c *ChannelObj) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
	c.rendez.Broadcast()
}

// Poll reports whether a Recv would succeed without blocking.
func (c *ChannelObj) Poll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capacity == 0 {
		return c.rendezTaken || c.closed
	}
	return c.count > 0 || c.closed
}

// Depth reports the number of buffered values, for internal/metrics.
func (c *ChannelObj) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Select implements a busy-poll select over multiple channels: it
// sweeps the candidates roughly once per millisecond until one is ready
// or ctx is cancelled, a known simplification over registering waiters
// on every candidate's condition variables.
func Select(ctx context.Context, channels []*ChannelObj) (int, value.Value, error) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		for i, c := range channels {
			if c.Poll() {
				v, err := c.RecvTimeout(0)
				if err == nil {
					return i, v, nil
				}
			}
		}
		select {
		case <-ctx.Done():
			return -1, value.Value{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func deadlineFor(timeout time.Duration) (time.Time, bool) {
	if timeout < 0 {
		return time.Time{}, false
	}
	return time.Now().Add(timeout), true
}

// waitUntil wraps cond.Wait with an optional deadline, since sync.Cond
// has no native timeout support: a watchdog goroutine broadcasts once
// the deadline passes so the waiter re-checks its condition and times
// out instead of blocking forever.
func (c *ChannelObj) waitUntil(cond *sync.Cond, deadline time.Time, has bool) bool {
	if !has {
		cond.Wait()
		return true
	}
	if !time.Now().Before(deadline) {
		return false
	}
	remaining := time.Until(deadline)
	done := make(chan struct{})
	timer := time.AfterFunc(remaining, func() {
		c.mu.Lock()
		cond.Broadcast()
		c.mu.Unlock()
		close(done)
	})
	cond.Wait()
	timer.Stop()
	select {
	case <-done:
		return !time.Now().After(deadline)
	default:
		return true
	}
}
