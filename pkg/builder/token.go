package builder

import (
	"context"
	"sync/atomic"
)

// Host exposes process-wide conditions under which a build must stop early.
type Host interface {
	IsShuttingDown() bool
	IsBatchRun() bool
	IsCollecting() bool
}

// HostFlags is a Host backed by atomic flags. The zero value reports all false.
type HostFlags struct {
	ShuttingDown atomic.Bool
	BatchRun     atomic.Bool
	// Collecting is raised while the object registry is being swapped out.
	Collecting atomic.Bool
}

func (h *HostFlags) IsShuttingDown() bool { return h.ShuttingDown.Load() }
func (h *HostFlags) IsBatchRun() bool     { return h.BatchRun.Load() }
func (h *HostFlags) IsCollecting() bool   { return h.Collecting.Load() }

type noHost struct{}

func (noHost) IsShuttingDown() bool { return false }
func (noHost) IsBatchRun() bool     { return false }
func (noHost) IsCollecting() bool   { return false }

// Token is the cancellation token handed to every collector pass. Cancelled
// is cheap and is polled at every manager and node boundary.
type Token struct {
	ctx     context.Context
	abandon *atomic.Bool
	host    Host
}

// Cancelled reports whether the build should stop: an explicit abandon, a
// cancelled context, or any host condition.
func (t Token) Cancelled() bool {
	if t.abandon != nil && t.abandon.Load() {
		return true
	}
	if t.ctx != nil && t.ctx.Err() != nil {
		return true
	}
	return hostWantsStop(t.host)
}

func hostWantsStop(h Host) bool {
	if h == nil {
		return false
	}
	return h.IsShuttingDown() || h.IsBatchRun() || h.IsCollecting()
}
