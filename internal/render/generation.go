// Generation tracking: monotonic versioning of submissions. Exactly one
// generation is current at any instant; everything older is stale.
package render

import (
	"sync"
	"sync/atomic"

	"rawroom/internal/edit"
	"rawroom/internal/filter"
	"rawroom/internal/imaging"
)

// GenPhase is the lifecycle state of one generation.
type GenPhase int32

const (
	PhaseSubmitted GenPhase = iota
	PhaseScheduled
	PhaseInFlight
	PhaseComplete
	PhaseSuperseded
)

func (p GenPhase) String() string {
	switch p {
	case PhaseSubmitted:
		return "submitted"
	case PhaseScheduled:
		return "scheduled"
	case PhaseInFlight:
		return "in-flight"
	case PhaseComplete:
		return "complete"
	case PhaseSuperseded:
		return "superseded"
	}
	return "unknown"
}

func (p GenPhase) terminal() bool {
	return p == PhaseComplete || p == PhaseSuperseded
}

// generation binds one (EditState, ROI, mode) triple to a monotonic id.
// The edit state is an immutable snapshot, so in-flight workers never race
// with newer UI edits.
type generation struct {
	id    uint64
	state edit.State
	roi   imaging.ROI
	mode  filter.Mode

	phase  atomic.Int32
	canvas *canvas
}

// advance moves the generation forward through its lifecycle. Transitions
// are forward-only; a terminal phase never changes again. Returns whether
// the transition took effect.
func (g *generation) advance(to GenPhase) bool {
	for {
		cur := GenPhase(g.phase.Load())
		if cur.terminal() || to <= cur {
			return false
		}
		if g.phase.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}

// tracker owns the forward-only "current" pointer. Staleness checks reduce
// to a pointer comparison against it.
type tracker struct {
	mu      sync.Mutex
	nextID  uint64
	current *generation
}

// mint creates a new current generation and supersedes the previous one.
func (t *tracker) mint(state edit.State, roi imaging.ROI, mode filter.Mode) *generation {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	g := &generation{id: t.nextID, state: state, roi: roi, mode: mode}
	if t.current != nil {
		t.current.advance(PhaseSuperseded)
	}
	t.current = g
	return g
}

// isCurrent reports whether g is still the live generation.
func (t *tracker) isCurrent(g *generation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current == g
}
