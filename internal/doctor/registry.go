package doctor

import "sync"

// Registry is the authoritative, stage-indexed catalog of checks. Checks
// are keyed by unique ID and returned per stage in registration order.
// Purely in-memory; no I/O.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]Check
	byStage map[Stage][]Check
	order   []string // global registration order of IDs
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]Check),
		byStage: make(map[Stage][]Check),
	}
}

// Register inserts a check. A duplicate ID fails with a RegistryError so
// two checks can never silently shadow each other's diagnostics. A failed
// registration leaves the registry unchanged.
func (r *Registry) Register(c Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if id == "" {
		return &RegistryError{CheckID: "?", Reason: "check has empty ID"}
	}
	if _, exists := r.byID[id]; exists {
		return &RegistryError{CheckID: id, Reason: "already registered"}
	}
	r.byID[id] = c
	r.byStage[c.Stage()] = append(r.byStage[c.Stage()], c)
	r.order = append(r.order, id)
	return nil
}

// ChecksForStage returns the stage's checks in registration order. An
// empty result is valid — that stage simply contributes zero results.
func (r *Registry) ChecksForStage(stage Stage) []Check {
	r.mu.RLock()
	defer r.mu.RUnlock()
	checks := make([]Check, len(r.byStage[stage]))
	copy(checks, r.byStage[stage])
	return checks
}

// Check returns the check with the given ID.
func (r *Registry) Check(id string) (Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// AllCheckIDs returns every registered check ID in registration order.
func (r *Registry) AllCheckIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// CheckCount returns the number of registered checks.
func (r *Registry) CheckCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// StageDistribution returns the number of checks per stage.
func (r *Registry) StageDistribution() map[Stage]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dist := make(map[Stage]int, len(r.byStage))
	for stage, checks := range r.byStage {
		dist[stage] = len(checks)
	}
	return dist
}

// Clear resets the registry. Test isolation only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]Check)
	r.byStage = make(map[Stage][]Check)
	r.order = nil
}
