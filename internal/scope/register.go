// Package scope holds the active branch (tenant partition) for the console
// process. Every outbound API request is scoped by the value held here.
package scope

import "sync"

// Headquarters is the unset sentinel: requests made before a branch is
// chosen are scoped to headquarters.
const Headquarters = 0

// Register is the process-wide cell holding the active branch id. It is
// injected into the request pipeline rather than read from a package global
// so tests can substitute their own instance.
type Register struct {
	mu       sync.RWMutex
	branch   int
	explicit bool
}

// NewRegister returns a register scoped to headquarters.
func NewRegister() *Register {
	return &Register{branch: Headquarters}
}

// Get returns the active branch id, Headquarters if none was chosen.
func (r *Register) Get() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branch
}

// Set records an explicitly chosen branch.
func (r *Register) Set(branch int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branch = branch
	r.explicit = true
}

// SetDefault seeds the register from a session's default branch. It is a
// no-op once a branch has been explicitly chosen.
func (r *Register) SetDefault(branch int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.explicit {
		return
	}
	r.branch = branch
}

// Reset returns the register to the headquarters scope.
func (r *Register) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branch = Headquarters
	r.explicit = false
}
