package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports progress of a long-running pass as a single
// carriage-return refreshed line.
type ProgressTracker struct {
	mu sync.Mutex

	writer   io.Writer
	unit     string
	total    int
	current  int
	every    int
	reported int
	began    time.Time
	started  bool
}

// NewProgressTracker creates a new progress tracker.
// unit names what is counted ("chunks"); every is the minimum advance
// between two reports.
func NewProgressTracker(writer io.Writer, total, every int, unit string) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if every <= 0 {
		every = 1
	}
	return &ProgressTracker{
		writer: writer,
		unit:   unit,
		total:  total,
		every:  every,
	}
}

// Start resets the counter and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.began = time.Now()
	p.started = true
	p.current = 0
	p.reported = 0
}

// Update sets the current position, capped at the total.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.advance(current)
}

// Increment moves the current position forward by delta.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.advance(p.current + delta)
}

// Finish prints the final line at 100%.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.began)
}

func (p *ProgressTracker) advance(to int) {
	p.current = min(to, p.total)
	if p.current-p.reported >= p.every {
		p.report()
		p.reported = p.current
	}
}

// report must be called with mu held.
func (p *ProgressTracker) report() {
	rate := 0.0
	if secs := time.Since(p.began).Seconds(); secs > 0 {
		rate = float64(p.current) / secs
	}
	pct := 0.0
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\rProgress: %d/%d %s (%.1f%%) - %.1f %s/s",
		p.current, p.total, p.unit, pct, rate, p.unit)
}
