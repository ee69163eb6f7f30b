package workerpool

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/google/uuid"

	"github.com/hemlang/hemlock/internal/logging"
	"github.com/hemlang/hemlock/internal/metrics"
	"github.com/hemlang/hemlock/internal/value"
)

// RunFunc executes a work item's function body against its arguments;
// the pool calls back into the evaluator through this indirection to
// avoid a workerpool<->eval import cycle.
type RunFunc func(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error)

// Config bounds worker count and per-worker deque capacity.
type Config struct {
	MinWorkers    int
	MaxWorkers    int
	DequeCapacity int
}

func (c Config) normalize() Config {
	if c.MinWorkers <= 0 {
		c.MinWorkers = 1
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = runtime.NumCPU()
	}
	if c.MaxWorkers < c.MinWorkers {
		c.MaxWorkers = c.MinWorkers
	}
	if c.DequeCapacity <= 0 {
		c.DequeCapacity = 256
	}
	return c
}

// Pool is the work-stealing thread pool: one Chase-Lev deque per worker
// plus a shared global overflow channel fed when a worker's own deque
// is full.
type Pool struct {
	ID uuid.UUID

	cfg     Config
	run     RunFunc
	deques  []*Deque
	global  chan *WorkItem
	wg      sync.WaitGroup
	stop    chan struct{}
	steals  atomic.Int64
}

// New creates a Pool with cfg.MaxWorkers deques and starts the worker
// goroutines. run is called to actually execute a submitted function.
func New(cfg Config, run RunFunc) *Pool {
	cfg = cfg.normalize()
	p := &Pool{
		ID:     uuid.New(),
		cfg:    cfg,
		run:    run,
		deques: make([]*Deque, cfg.MaxWorkers),
		global: make(chan *WorkItem, 4096),
		stop:   make(chan struct{}),
	}
	for i := range p.deques {
		p.deques[i] = NewDeque(cfg.DequeCapacity)
	}
	for i := 0; i < cfg.MaxWorkers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	logging.Op().Info("worker pool started", "pool_id", p.ID.String(), "workers", cfg.MaxWorkers)
	if m := metrics.Global(); m != nil {
		m.SetPoolWorkers(cfg.MaxWorkers)
	}
	return p
}

// Submit schedules fn(args...) for execution, preferring worker 0's
// deque (the caller's own submission slot) and falling back to the
// global queue when it is full. It returns a channel the result will be
// delivered on exactly once.
func (p *Pool) Submit(fn value.Value, args []value.Value) <-chan workResultPublic {
	item := &WorkItem{Fn: fn, Args: args, Result: make(chan workResult, 1)}
	if !p.deques[0].PushBottom(item) {
		p.global <- item
	}
	out := make(chan workResultPublic, 1)
	go func() {
		r := <-item.Result
		out <- workResultPublic{Value: r.Value, Err: r.Err}
	}()
	return out
}

// workResultPublic mirrors workResult for external callers (task.Task),
// keeping the internal workResult type unexported.
type workResultPublic struct {
	Value value.Value
	Err   error
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	blockSignals()

	own := p.deques[id]
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		item := own.PopBottom()
		if item == nil {
			select {
			case item = <-p.global:
			default:
			}
		}
		if item == nil {
			item = p.stealFrom(id, rng)
		}
		if item == nil {
			select {
			case <-p.stop:
				return
			case item = <-p.global:
			case <-time.After(1 * time.Millisecond):
				continue
			}
		}

		v, err := p.run(context.Background(), item.Fn, item.Args)
		item.Result <- workResult{Value: v, Err: err}
	}
}

func (p *Pool) stealFrom(selfID int, rng *rand.Rand) *WorkItem {
	n := len(p.deques)
	if n <= 1 {
		return nil
	}
	start := rng.Intn(n)
	for i := 0; i < n; i++ {
		victim := (start + i) % n
		if victim == selfID {
			continue
		}
		if item := p.deques[victim].PopTop(); item != nil {
			p.steals.Add(1)
			if m := metrics.Global(); m != nil {
				m.AddPoolSteals(1)
			}
			return item
		}
	}
	return nil
}

// Shutdown stops all workers once their current item (if any) finishes
// and waits for them to exit.
func (p *Pool) Shutdown() {
	close(p.stop)
	p.wg.Wait()
	logging.Op().Info("worker pool stopped", "pool_id", p.ID.String())
}

// Stats reports cumulative counters for internal/metrics.
type Stats struct {
	Workers int
	Steals  int64
	QueueDepth int
}

func (p *Pool) Stats() Stats {
	depth := len(p.global)
	for _, d := range p.deques {
		depth += d.Len()
	}
	return Stats{Workers: len(p.deques), Steals: p.steals.Load(), QueueDepth: depth}
}

// blockSignals blocks SIGINT/SIGTERM on the calling OS thread so only
// the main goroutine's os/signal channel observes them, per the
// requirement that worker threads never handle process signals.
func blockSignals() {
	var set unix.Sigset_t
	unix.SigaddSet(&set, int(unix.SIGINT))
	unix.SigaddSet(&set, int(unix.SIGTERM))
	_ = unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil)
}
