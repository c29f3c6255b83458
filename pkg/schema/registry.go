// Package schema implements the PALD schema registry: it loads,
// validates, caches, and watches a versioned attribute schema file. On any
// failure it keeps the last successfully loaded schema, or uses a built-in
// default when none has loaded, so callers never see an error from Load.
package schema

import (
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/paldcore/paldcore/pkg/pald"
	"github.com/paldcore/paldcore/pkg/shared/logging"
)

// Registry loads and caches the attribute schema from a source file,
// reloading when the file's modification time advances or the cache ages
// past its TTL.
type Registry struct {
	mu           sync.RWMutex
	path         string
	ttl          time.Duration
	cached       *pald.Schema
	lastModified time.Time
	loadedAt     time.Time
	log          logr.Logger
}

// NewRegistry returns a Registry reading schema JSON from path, with the
// given default cache TTL.
func NewRegistry(path string, ttl time.Duration, log logr.Logger) *Registry {
	return &Registry{
		path: path,
		ttl:  ttl,
		log:  log,
	}
}

// SetTTL updates the cache time-to-live.
func (r *Registry) SetTTL(ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttl = ttl
}

// CurrentVersion returns the content-hash version of the currently cached
// schema, or "" if nothing has been loaded yet.
func (r *Registry) CurrentVersion() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached == nil {
		return ""
	}
	return r.cached.Version
}

// DetectChanges reports whether the source file's modification time is
// newer than what was last loaded.
func (r *Registry) DetectChanges() bool {
	r.mu.RLock()
	last := r.lastModified
	r.mu.RUnlock()

	return r.fileChangedSince(last)
}

func (r *Registry) fileChangedSince(last time.Time) bool {
	info, err := os.Stat(r.path)
	if err != nil {
		return false
	}
	return last.IsZero() || info.ModTime().After(last)
}

// Load returns the current schema, reloading from disk when needed. Any
// read or parse failure is logged and the registry keeps the last
// successfully loaded schema, or the built-in default schema when none has
// loaded; Load never returns an error to the caller.
func (r *Registry) Load() *pald.Schema {
	if r.shouldReload() {
		r.reload()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cached != nil {
		return r.cached
	}
	return pald.DefaultSchema()
}

func (r *Registry) shouldReload() bool {
	r.mu.RLock()
	cached := r.cached
	last := r.lastModified
	loadedAt := r.loadedAt
	ttl := r.ttl
	r.mu.RUnlock()

	if cached == nil {
		return true
	}
	if r.fileChangedSince(last) {
		return true
	}
	if ttl > 0 && time.Since(loadedAt) > ttl {
		return true
	}
	return false
}

func (r *Registry) reload() {
	fields := logging.NewFields().Component("schema_registry").Operation("reload").Custom("path", r.path)

	data, err := os.ReadFile(r.path)
	if err != nil {
		r.log.Info("schema file unavailable, using default schema", toInterfaceSlice(fields.Error(err))...)
		r.useDefault()
		return
	}

	parsed, err := pald.ParseSchemaJSON(data)
	if err != nil {
		r.log.Info("schema validation failed, using default schema", toInterfaceSlice(fields.Error(err))...)
		r.useDefault()
		return
	}

	info, statErr := os.Stat(r.path)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = parsed
	r.loadedAt = time.Now()
	if statErr == nil {
		r.lastModified = info.ModTime()
	}
}

func (r *Registry) useDefault() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil {
		r.cached = pald.DefaultSchema()
	}
	r.loadedAt = time.Now()
}

func toInterfaceSlice(fields logging.StandardFields) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
