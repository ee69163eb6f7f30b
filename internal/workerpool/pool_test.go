package workerpool

import (
	"context"
	"sync"
	"testing"

	"github.com/hemlang/hemlock/internal/value"
)

func TestDequePushPopOwner(t *testing.T) {
	d := NewDeque(4)
	items := []*WorkItem{{}, {}, {}}
	for _, it := range items {
		if !d.PushBottom(it) {
			t.Fatal("push failed unexpectedly")
		}
	}
	for i := len(items) - 1; i >= 0; i-- {
		if d.PopBottom() != items[i] {
			t.Fatalf("expected LIFO pop order at %d", i)
		}
	}
	if d.PopBottom() != nil {
		t.Fatal("expected nil from empty deque")
	}
}

func TestDequeStealFromTop(t *testing.T) {
	d := NewDeque(4)
	a, b := &WorkItem{}, &WorkItem{}
	d.PushBottom(a)
	d.PushBottom(b)
	stolen := d.PopTop()
	if stolen != a {
		t.Fatal("expected steal to take the oldest (top) item")
	}
}

func TestDequeConcurrentStealRace(t *testing.T) {
	d := NewDeque(1024)
	const n = 500
	for i := 0; i < n; i++ {
		d.PushBottom(&WorkItem{})
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	stealers := 4
	for i := 0; i < stealers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count := 0
			for d.PopTop() != nil {
				count++
			}
			mu.Lock()
			taken += count
			mu.Unlock()
		}()
	}
	ownerTaken := 0
	for d.PopBottom() != nil {
		ownerTaken++
	}
	wg.Wait()
	if taken+ownerTaken != n {
		t.Fatalf("total items retrieved = %d, want %d", taken+ownerTaken, n)
	}
}

func TestPoolSubmitRunsFunction(t *testing.T) {
	p := New(Config{MinWorkers: 2, MaxWorkers: 2}, func(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error) {
		return value.Add(args[0], args[1])
	})
	defer p.Shutdown()

	result := <-p.Submit(value.Null(), []value.Value{value.I32(2), value.I32(3)})
	if result.Err != nil {
		t.Fatal(result.Err)
	}
	if result.Value.AsI32() != 5 {
		t.Fatalf("got %d want 5", result.Value.AsI32())
	}
}
