package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/jumpgate/internal/domain"
)

// ServiceSummary is the structural view of one service as mounted in the
// route table.
type ServiceSummary struct {
	Key        string `json:"key"`
	PathPrefix string `json:"path_prefix"`
	Routes     int    `json:"routes"`
}

// MemoryIndex remembers what the current route table was built from. It
// holds structure only (keys, prefixes, counts, signature); request
// handling never reads entity state from it.
type MemoryIndex struct {
	mu          sync.RWMutex
	services    map[string]ServiceSummary // key -> summary
	signature   uint64
	routes      int
	lastReload  time.Time // last successful rebuild
	lastAttempt time.Time
	lastError   string
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		services: make(map[string]ServiceSummary),
	}
}

// Update replaces the index after a successful rebuild.
func (idx *MemoryIndex) Update(services []*domain.Service, signature uint64, mounted int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.services = make(map[string]ServiceSummary, len(services))
	for _, svc := range services {
		idx.services[svc.Key] = ServiceSummary{
			Key:        svc.Key,
			PathPrefix: svc.PathPrefix,
			Routes:     len(svc.Routes),
		}
	}
	idx.signature = signature
	idx.routes = mounted
	idx.lastReload = time.Now()
	idx.lastAttempt = idx.lastReload
	idx.lastError = ""
}

// MarkChecked records a resync that found nothing to rebuild.
func (idx *MemoryIndex) MarkChecked() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lastAttempt = time.Now()
	idx.lastError = ""
}

// MarkFailed records a failed resync. The previous structure is kept.
func (idx *MemoryIndex) MarkFailed(err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lastAttempt = time.Now()
	idx.lastError = err.Error()
}

// Signature returns the signature of the mounted structure, 0 before the
// first rebuild.
func (idx *MemoryIndex) Signature() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.signature
}

// GetService returns the summary of a mounted service
func (idx *MemoryIndex) GetService(key string) (ServiceSummary, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s, ok := idx.services[key]
	return s, ok
}

// Services returns the mounted services sorted by key
func (idx *MemoryIndex) Services() []ServiceSummary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]ServiceSummary, 0, len(idx.services))
	for _, s := range idx.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Count returns the number of mounted services
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.services)
}

// RouteCount returns the number of mounted routes
func (idx *MemoryIndex) RouteCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.routes
}

// GetLastReload returns the time of the last successful rebuild
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// Status returns the time of the last resync attempt and its error, if any.
func (idx *MemoryIndex) Status() (time.Time, string) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastAttempt, idx.lastError
}
