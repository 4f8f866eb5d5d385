package migration

import "sync"

// RunGuard prevents a second migrating loop from starting for the same
// orchestrator instance. A near-simultaneous duplicate invocation (say,
// from a re-triggered caller) must never execute dispatch calls for
// campaigns an in-flight run already owns.
type RunGuard struct {
	mu      sync.Mutex
	started bool
}

// TryStart claims the run. It returns false when another invocation
// already holds it; the loser performs no network calls and simply mirrors
// the existing state.
func (g *RunGuard) TryStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return false
	}
	g.started = true
	return true
}

// Started reports whether the run was ever claimed.
func (g *RunGuard) Started() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}
