package application

import (
	"sync"

	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

// IssueLookupProvider holds a mutex-protected reference to the current
// driven.IssueLookup, so a GitHub token configured (or rotated) at runtime
// takes effect without restarting the panel.
type IssueLookupProvider struct {
	mu     sync.RWMutex
	lookup driven.IssueLookup
}

// NewIssueLookupProvider creates a new provider with the given initial lookup.
// lookup may be nil if no GitHub token is available at startup.
func NewIssueLookupProvider(lookup driven.IssueLookup) *IssueLookupProvider {
	return &IssueLookupProvider{lookup: lookup}
}

// Get returns the current issue lookup. Callers should check for nil if the
// provider was created without a token.
func (p *IssueLookupProvider) Get() driven.IssueLookup {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup
}

// Replace swaps the current lookup. The next caller of Get() receives the
// new value.
func (p *IssueLookupProvider) Replace(lookup driven.IssueLookup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookup = lookup
}

// HasLookup returns true if a non-nil lookup is currently held.
func (p *IssueLookupProvider) HasLookup() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lookup != nil
}
