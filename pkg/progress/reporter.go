// Package progress normalizes raw backend events into the two-phase
// progress stream delivered to install callbacks.
package progress

import (
	"sync"

	"github.com/glorpus-work/bucketd/pkg/model"
)

// Callback receives normalized progress for one install request.
type Callback func(status model.Status, percent int)

// Reporter translates backend events into (status, percent) updates. Every
// request moves through downloading and then installing exactly once; percent
// never decreases within a phase and fetch events arriving after the install
// phase has begun are dropped.
type Reporter struct {
	mu         sync.Mutex
	cb         Callback
	installing bool
	lastStatus model.Status
	lastPct    int
	emitted    bool
}

// New returns a reporter delivering normalized progress to cb. A nil cb
// yields a reporter that swallows all events.
func New(cb Callback) *Reporter {
	return &Reporter{cb: cb}
}

// Handle consumes one backend event. Safe for concurrent use; download
// workers report from multiple goroutines.
func (r *Reporter) Handle(ev model.BackendEvent) {
	if r.cb == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var status model.Status
	switch ev.Kind {
	case model.EventFetch:
		if r.installing {
			return
		}
		status = model.StatusDownloading
	case model.EventInstall:
		r.installing = true
		status = model.StatusInstalling
	default:
		return
	}

	pct := percent(ev.Completed, ev.Total)
	if r.emitted && status == r.lastStatus {
		if pct < r.lastPct {
			pct = r.lastPct
		}
		if pct == r.lastPct {
			return
		}
	}

	r.lastStatus = status
	r.lastPct = pct
	r.emitted = true
	r.cb(status, pct)
}

func percent(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(completed * 100 / total)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
