package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"tondrag/oscmanager"
)

// Console prints status updates in arrival order. Writes happen on a single
// goroutine fed through a buffered job channel. OnStatus returns without
// waiting for the terminal unless more than 50 lines are already queued, in
// which case it waits for room rather than drop a line.
type Console struct {
	w     io.Writer
	limit int

	mu     sync.Mutex
	closed bool
	jobs   chan func()
	done   chan struct{}

	// Owned by the console goroutine.
	lines []string
}

func newConsole(w io.Writer, limit int) *Console {
	c := &Console{
		w:     w,
		limit: limit,
		jobs:  make(chan func(), 50),
		done:  make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Console) run() {
	defer close(c.done)
	for job := range c.jobs {
		job()
	}
}

func (c *Console) submit(job func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.jobs <- job
}

// OnStatus implements oscmanager.StatusReporter.
func (c *Console) OnStatus(message string, severity oscmanager.Severity) {
	at := time.Now()
	c.submit(func() {
		prefix := ""
		if severity == oscmanager.Error {
			prefix = "! "
		}
		c.append(fmt.Sprintf("[%s] %s%s", at.Format(time.TimeOnly), prefix, message))
	})
}

// Println writes an informational line that is not a status change.
func (c *Console) Println(line string) {
	c.submit(func() { c.append(line) })
}

// History sends the last lines, oldest first, to the console output.
func (c *Console) History() {
	c.submit(func() {
		for _, l := range c.lines {
			fmt.Fprintln(c.w, "  "+l)
		}
	})
}

func (c *Console) append(line string) {
	c.lines = append(c.lines, line)
	// enforce max lines
	if len(c.lines) > c.limit {
		c.lines = c.lines[len(c.lines)-c.limit:]
	}
	fmt.Fprintln(c.w, line)
}

// Close flushes pending lines. Later calls to OnStatus are dropped.
func (c *Console) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobs)
	}
	c.mu.Unlock()
	<-c.done
}
