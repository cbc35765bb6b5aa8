package search

// SearchMonitor provides hooks to observe the search process.
type SearchMonitor interface {
	Start(tenantID, query string)
	AfterSemanticSearch(matches int)
	VerbatimHit(result *Result)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)         {}
func (n *noopMonitor) AfterSemanticSearch(_ int) {}
func (n *noopMonitor) VerbatimHit(_ *Result)     {}
func (n *noopMonitor) Finish(_ []*Result)        {}
