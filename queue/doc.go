// Package queue runs single-item pipeline jobs asynchronously.
//
// Jobs are ordered by priority class (high, default, low) and FIFO within a
// class, run on an ants worker pool under a wall-clock timeout, and are
// deduplicated per item. Finished jobs stay inspectable until their
// retention expires.
package queue
