package console

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Flash collects user-visible notices until the next rendered page drains
// them. It is the web shell's toast presenter and the session controller's
// Notifier.
type Flash struct {
	mu      sync.Mutex
	notices []string
}

func NewFlash() *Flash {
	return &Flash{}
}

func (f *Flash) add(notice string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
}

func (f *Flash) SessionExpired() {
	f.add("Your session has expired. Please sign in again.")
}

func (f *Flash) SignedOut() {
	f.add("You have been signed out.")
}

func (f *Flash) BranchChanged(branchID int) {
	f.add(fmt.Sprintf("Active branch changed to %d.", branchID))
}

// Drain returns and clears the pending notices.
func (f *Flash) Drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	notices := f.notices
	f.notices = nil
	return notices
}

// Redirector is the web shell's Navigator. Session-level navigation intent
// (kick to login, full reload) is recorded here and consumed by the route
// guard on the next request, since an HTTP server cannot move a browser
// outside a request cycle.
type Redirector struct {
	target atomic.Value // string
}

func NewRedirector() *Redirector {
	r := &Redirector{}
	r.target.Store("")
	return r
}

func (r *Redirector) ToLogin() {
	r.target.Store("/login")
}

func (r *Redirector) Reload() {
	r.target.Store("/")
}

// Consume returns the pending navigation target, clearing it.
func (r *Redirector) Consume() string {
	t, _ := r.target.Swap("").(string)
	return t
}
