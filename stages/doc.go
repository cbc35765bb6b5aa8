// Package stages defines the default sermon enrichment pipeline: the
// collaborator contracts each stage acts through and the catalog binding
// them into pipeline.Stage definitions.
//
// Every probe reads the field the stage owns on the item record, so a stage
// whose output is already present is skipped. Actions that find their input
// missing return an error wrapping pipeline.ErrInputUnavailable and are
// reported as bypassed.
package stages
