package coordinator

import (
	"sync"

	"github.com/lgmys/shardy/internal/wire"
)

// PendingResponses maps request ids to the SearchResponse that satisfies
// them (§3). It is written by every connection's reader goroutine and read
// by the query scheduler; all work under its lock is O(1) map access
// (§5, "no I/O under the lock").
type PendingResponses struct {
	mu   sync.Mutex
	byID map[string]wire.SearchResponseBody
}

// NewPendingResponses returns an empty PendingResponses map.
func NewPendingResponses() *PendingResponses {
	return &PendingResponses{byID: make(map[string]wire.SearchResponseBody)}
}

// Put records resp under its request id, overwriting any prior value.
func (p *PendingResponses) Put(resp wire.SearchResponseBody) {
	p.mu.Lock()
	p.byID[resp.ID] = resp
	p.mu.Unlock()
}

// Take returns the response for id, removing it, if present.
func (p *PendingResponses) Take(id string) (wire.SearchResponseBody, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp, ok := p.byID[id]
	if ok {
		delete(p.byID, id)
	}
	return resp, ok
}
