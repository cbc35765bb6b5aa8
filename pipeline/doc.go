// Package pipeline sequences enrichment stages for sermon items.
//
// A Registry holds the ordered stage catalog and computes run plans (all
// stages, an include or exclude set, or a resume from the last failure).
// The Orchestrator drives an Executor over a plan for one item, persisting
// Pipeline State after every stage so interrupted work can resume, and
// applying each stage's fatality class: fatal failures halt the item and
// mark it failed, recoverable ones become warnings on the summary.
// Batch fans the orchestrator out across items on an ants worker pool.
//
// Stage actions wrap ErrInputUnavailable when an upstream stage did not
// produce their input; such stages are reported as bypassed, neither
// completed nor warned.
package pipeline
