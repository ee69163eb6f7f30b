package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// CallTrace represents a single evaluator function call, emitted when
// trace logging is enabled (the CLI's --trace flag).
type CallTrace struct {
	Timestamp  time.Time `json:"timestamp"`
	TaskID     string    `json:"task_id,omitempty"`
	Function   string    `json:"function"`
	DurationMs int64     `json:"duration_ms"`
	Depth      int       `json:"depth"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// Tracer writes call traces to the console and, optionally, a JSONL file.
type Tracer struct {
	mu      sync.Mutex
	enabled bool
	file    *os.File
	console bool
}

var defaultTracer = &Tracer{enabled: false, console: true}

// DefaultTracer returns the process-wide call tracer.
func DefaultTracer() *Tracer {
	return defaultTracer
}

// SetEnabled toggles whether Trace records anything.
func (t *Tracer) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// SetOutput directs a copy of every trace to a JSONL file.
func (t *Tracer) SetOutput(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		t.file.Close()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	t.file = f
	return nil
}

// Trace records a single call.
func (t *Tracer) Trace(entry CallTrace) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.enabled {
		return
	}

	entry.Timestamp = time.Now()

	if t.console {
		status := "ok"
		if !entry.Success {
			status = "error"
		}
		indent := ""
		for i := 0; i < entry.Depth; i++ {
			indent += "  "
		}
		fmt.Fprintf(os.Stderr, "[trace] %s%s %s %dms\n", indent, entry.Function, status, entry.DurationMs)
		if entry.Error != "" {
			fmt.Fprintf(os.Stderr, "[trace] %s  error: %s\n", indent, entry.Error)
		}
	}

	if t.file != nil {
		data, _ := json.Marshal(entry)
		t.file.Write(append(data, '\n'))
	}
}

// Close closes the trace output file, if any.
func (t *Tracer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}
