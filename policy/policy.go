// Package policy stores the active wait policy (poll interval and timeout)
// for each root search context.
//
// A Registry is keyed on the canonical root identity, as returned by
// [ui.Canonical], so an instrumented wrapper around a session shares its
// policy with the raw session. Entries are created on first use from the
// registry defaults and live until they are removed.
package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/cboone/lazynode/ui"
)

const (
	// DefaultTimeout is used when a Registry is built from zero Settings.
	DefaultTimeout = 5 * time.Second
	// DefaultPollInterval is used when a Registry is built from zero Settings.
	DefaultPollInterval = 50 * time.Millisecond
	// MinPollInterval is the smallest poll interval a policy will hold.
	MinPollInterval = 10 * time.Millisecond
)

// Settings is an immutable snapshot of a policy's timing values.
type Settings struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Normalize clamps s to valid values: poll intervals below MinPollInterval
// become MinPollInterval and negative timeouts become zero.
func (s Settings) Normalize() Settings {
	if s.PollInterval < MinPollInterval {
		s.PollInterval = MinPollInterval
	}
	if s.Timeout < 0 {
		s.Timeout = 0
	}
	return s
}

// WithTimeout returns a copy of s with the timeout replaced.
func (s Settings) WithTimeout(d time.Duration) Settings {
	s.Timeout = d
	return s
}

func (s Settings) String() string {
	return fmt.Sprintf("timeout=%v poll=%v", s.Timeout, s.PollInterval)
}

// Policy is the mutable wait policy of one root. It is safe for concurrent
// use; readers should take a Values snapshot at the start of each wait.
type Policy struct {
	mu          sync.Mutex
	settings    Settings
	lastMessage string
}

func newPolicy(s Settings) *Policy {
	return &Policy{settings: s.Normalize()}
}

// Values returns the current settings.
func (p *Policy) Values() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// PollInterval returns the current poll interval.
func (p *Policy) PollInterval() time.Duration { return p.Values().PollInterval }

// Timeout returns the current timeout.
func (p *Policy) Timeout() time.Duration { return p.Values().Timeout }

// Set replaces the settings. Values are normalized.
func (p *Policy) Set(s Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = s.Normalize()
}

// Note records a diagnostic message from the wait currently using p,
// typically the reason its last attempt was not ready.
func (p *Policy) Note(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastMessage = msg
}

// Message returns the last recorded diagnostic message.
func (p *Policy) Message() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastMessage
}

func (p *Policy) clearMessage() {
	p.mu.Lock()
	p.lastMessage = ""
	p.mu.Unlock()
}

// Registry maps root identities to their policies. It is safe for
// concurrent use by multiple goroutines operating on different roots.
// Keys must be comparable; backends conventionally use pointer roots.
type Registry struct {
	mu       sync.RWMutex
	defaults Settings
	entries  map[any]*Policy
}

// NewRegistry returns a registry whose entries start from defaults. Zero
// fields fall back to DefaultTimeout and DefaultPollInterval.
func NewRegistry(defaults Settings) *Registry {
	if defaults.Timeout == 0 {
		defaults.Timeout = DefaultTimeout
	}
	if defaults.PollInterval == 0 {
		defaults.PollInterval = DefaultPollInterval
	}
	return &Registry{
		defaults: defaults.Normalize(),
		entries:  make(map[any]*Policy),
	}
}

// Defaults returns the settings new entries start from.
func (r *Registry) Defaults() Settings {
	return r.defaults
}

func key(root ui.SearchContext) any {
	return ui.Canonical(root)
}

// Get returns the policy for root, creating it from the defaults on first
// use. The returned policy's diagnostic message is always cleared, so a
// message left by an earlier failed wait never leaks into a new one.
func (r *Registry) Get(root ui.SearchContext) *Policy {
	k := key(root)

	r.mu.RLock()
	p, ok := r.entries[k]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		p, ok = r.entries[k]
		if !ok {
			p = newPolicy(r.defaults)
			r.entries[k] = p
		}
		r.mu.Unlock()
	}

	p.clearMessage()
	return p
}

// Set replaces the settings of root's policy, creating the entry if needed.
func (r *Registry) Set(root ui.SearchContext, s Settings) {
	r.Get(root).Set(s)
}

// Reset restores root's policy to the registry defaults.
func (r *Registry) Reset(root ui.SearchContext) {
	r.Get(root).Set(r.defaults)
}

// Remove deletes root's entry. A later Get recreates it from the defaults.
func (r *Registry) Remove(root ui.SearchContext) {
	k := key(root)
	r.mu.Lock()
	delete(r.entries, k)
	r.mu.Unlock()
}

// Len returns the number of registered roots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
