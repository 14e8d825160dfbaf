package reportql

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ProviderFactory lazily constructs a Provider on first use. Errors
// are not cached: a failed factory call may be retried on the next Get.
type ProviderFactory func() (Provider, error)

// Registry is the process-wide keyed collection of dataset providers.
// It is read-mostly after startup; the only mutation path outside
// registration is Clear, used by tests.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	lazy      map[string]ProviderFactory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		lazy:      make(map[string]ProviderFactory),
	}
}

// Add eagerly registers a provider under its own Key(). Overwriting an
// existing key logs a warning and replaces the entry.
func (r *Registry) Add(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := p.Key()
	_, eager := r.providers[key]
	_, lazy := r.lazy[key]
	if eager || lazy {
		zap.S().Warnw("overwriting provider", "dataset", key)
	}
	delete(r.lazy, key)
	r.providers[key] = p
}

// AddLazy registers a factory under key, deferring construction until
// the first Get(key).
func (r *Registry) AddLazy(key string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[key]; exists {
		zap.S().Warnw("overwriting provider with a lazy factory", "dataset", key)
		delete(r.providers, key)
	}
	r.lazy[key] = factory
}

// Get returns the provider for key, materialising and caching it if it
// was registered lazily. Returns DatasetNotFoundError if key is
// registered under neither map.
func (r *Registry) Get(key string) (Provider, error) {
	r.mu.RLock()
	if p, ok := r.providers[key]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	factory, ok := r.lazy[key]
	r.mu.RUnlock()
	if !ok {
		return nil, NewDatasetNotFoundError(key)
	}

	p, err := factory()
	if err != nil {
		return nil, NewBackendError("failed to construct provider for dataset "+key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have materialised the same key first;
	// keep whichever won the race, but always clear the lazy entry.
	if existing, ok := r.providers[key]; ok {
		delete(r.lazy, key)
		return existing, nil
	}
	r.providers[key] = p
	delete(r.lazy, key)
	return p, nil
}

// ListKeys returns the sorted union of eager and lazy keys.
func (r *Registry) ListKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.providers)+len(r.lazy))
	for k := range r.providers {
		seen[k] = struct{}{}
	}
	for k := range r.lazy {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AllProviders materialises every lazy entry and returns the full set.
func (r *Registry) AllProviders() (map[string]Provider, error) {
	for _, key := range r.ListKeys() {
		if _, err := r.Get(key); err != nil {
			return nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		out[k] = v
	}
	return out, nil
}

// Clear empties both maps. Intended for tests only.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]Provider)
	r.lazy = make(map[string]ProviderFactory)
}
