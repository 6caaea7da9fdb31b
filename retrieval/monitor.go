package retrieval

import (
	"time"

	"github.com/poiesic/rolodex/core"
	"github.com/poiesic/rolodex/index"
)

// Monitor provides hooks to observe the retrieval process.
// Implementations must be safe for concurrent use.
type Monitor interface {
	Start(query string, k int)
	AfterSearch(hits []index.Hit)
	Finish(results []*core.SearchResult, elapsed time.Duration, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                                  {}
func (n *noopMonitor) AfterSearch(_ []index.Hit)                              {}
func (n *noopMonitor) Finish(_ []*core.SearchResult, _ time.Duration, _ error) {}
