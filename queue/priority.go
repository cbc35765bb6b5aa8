package queue

import (
	"container/heap"
	"fmt"
	"strings"
)

// Priority is a job's scheduling class. Higher values are dequeued first.
type Priority int

const (
	PriorityLow     Priority = 0
	PriorityDefault Priority = 10
	PriorityHigh    Priority = 20
)

func (p Priority) String() string {
	switch {
	case p >= PriorityHigh:
		return "high"
	case p >= PriorityDefault:
		return "default"
	default:
		return "low"
	}
}

// ParsePriority maps "high", "default" or "low" to a Priority.
// An empty string is the default class.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "", "default", "normal":
		return PriorityDefault, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Depth reports queued jobs by priority class.
type Depth struct {
	Total   int `json:"total"`
	High    int `json:"high"`
	Default int `json:"default"`
	Low     int `json:"low"`
}

// jobEntry wraps a job with its sequence number for heap ordering.
type jobEntry struct {
	job *Job
	seq uint64 // FIFO within a priority
}

// jobHeap orders by priority descending, then by seq ascending.
type jobHeap []*jobEntry

var _ heap.Interface = (*jobHeap)(nil)

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(*jobEntry))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}

func (h jobHeap) depth() Depth {
	d := Depth{Total: len(h)}
	for _, e := range h {
		switch e.job.Priority.String() {
		case "high":
			d.High++
		case "default":
			d.Default++
		default:
			d.Low++
		}
	}
	return d
}
