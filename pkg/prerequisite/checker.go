// Package prerequisite implements the PALD prerequisite validator: a
// registry of pluggable readiness checkers, operation-specific policies
// naming which checkers gate which operation, and bounded-parallel
// execution with per-checker timeout and result caching.
package prerequisite

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/paldcore/paldcore/pkg/cache"
	"github.com/paldcore/paldcore/pkg/metrics"
	"github.com/paldcore/paldcore/pkg/pald"
)

// Checker is one readiness probe: a database ping, an HTTP dependency
// check, a consent lookup, or a system health sample.
type Checker interface {
	Name() string
	Kind() pald.CheckerKind
	Check(ctx context.Context) pald.PrerequisiteResult
}

type cacheEntry struct {
	result   pald.PrerequisiteResult
	cachedAt time.Time
}

// maxParallelWorkers bounds the worker pool per suite run.
const maxParallelWorkers = 5

// Service owns a registry of checkers, operation-specific policies, and a
// TTL-based result cache shared across operations. The in-memory map is
// always authoritative for a single process; an optional external
// cache.Store lets multiple instances share cached results (e.g. behind a
// shared Redis), with the in-memory map still serving as a per-process
// fast path in front of it.
type Service struct {
	mu         sync.Mutex
	checkers   map[string]Checker
	order      []string
	cache      map[string]cacheEntry
	ttl        time.Duration
	operations map[string]OperationPolicy
	external   cache.Store
	metrics    *metrics.Metrics
}

// SetMetrics attaches m so checker latency and cache hit/miss counts are
// observed on the paldcore_prerequisite_*/cache_* collectors; a Service
// with no attached Metrics behaves identically, just unobserved.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// NewService returns an empty registry with the given cache TTL, backed
// only by the in-process cache map.
func NewService(ttl time.Duration) *Service {
	return &Service{
		checkers:   make(map[string]Checker),
		cache:      make(map[string]cacheEntry),
		ttl:        ttl,
		operations: make(map[string]OperationPolicy),
	}
}

// NewServiceWithStore returns a Service whose result cache is additionally
// mirrored through external, so cached results can survive a process
// restart or be shared across instances.
func NewServiceWithStore(ttl time.Duration, external cache.Store) *Service {
	s := NewService(ttl)
	s.external = external
	return s
}

// Register adds a checker to the service, replacing any existing checker
// with the same name.
func (s *Service) Register(c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.checkers[c.Name()]; !exists {
		s.order = append(s.order, c.Name())
	}
	s.checkers[c.Name()] = c
}

// RegisterOperation records a named operation's checker policy.
func (s *Service) RegisterOperation(policy OperationPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations[policy.OperationName] = policy
}

// CheckerNames returns every registered checker's name, in registration
// order.
func (s *Service) CheckerNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Service) isCacheValid(name string) bool {
	entry, ok := s.cache[name]
	if !ok {
		return false
	}
	return s.ttl <= 0 || time.Since(entry.cachedAt) < s.ttl
}

func (s *Service) cachedResult(name string) (pald.PrerequisiteResult, bool) {
	s.mu.Lock()
	if s.isCacheValid(name) {
		result := s.cache[name].result
		s.mu.Unlock()
		s.observeCache(true)
		return result, true
	}
	s.mu.Unlock()

	if s.external == nil {
		s.observeCache(false)
		return pald.PrerequisiteResult{}, false
	}

	raw, ok, err := s.external.Get(context.Background(), name)
	if err != nil || !ok {
		s.observeCache(false)
		return pald.PrerequisiteResult{}, false
	}
	var result pald.PrerequisiteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		s.observeCache(false)
		return pald.PrerequisiteResult{}, false
	}

	s.mu.Lock()
	s.cache[name] = cacheEntry{result: result, cachedAt: time.Now()}
	s.mu.Unlock()
	s.observeCache(true)
	return result, true
}

// observeCache records a prerequisite-cache hit or miss; a no-op when no
// Metrics is attached.
func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHitsTotal.WithLabelValues("prerequisite").Inc()
	} else {
		s.metrics.CacheMissesTotal.WithLabelValues("prerequisite").Inc()
	}
}

// observeCheck records a checker run's latency and outcome; a no-op when no
// Metrics is attached.
func (s *Service) observeCheck(name string, status pald.PrerequisiteStatus, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.PrerequisiteCheckSeconds.WithLabelValues(name, string(status)).Observe(elapsed.Seconds())
	s.metrics.PrerequisiteCheckTotal.WithLabelValues(name, string(status)).Inc()
}

func (s *Service) store(name string, result pald.PrerequisiteResult) {
	s.mu.Lock()
	s.cache[name] = cacheEntry{result: result, cachedAt: time.Now()}
	s.mu.Unlock()

	if s.external == nil {
		return
	}
	if raw, err := json.Marshal(result); err == nil {
		_ = s.external.Set(context.Background(), name, raw, s.ttl)
	}
}

// ClearCache drops a named cache entry, or every entry if name is "".
func (s *Service) ClearCache(name string) {
	s.mu.Lock()
	var names []string
	if name == "" {
		for n := range s.cache {
			names = append(names, n)
		}
		s.cache = make(map[string]cacheEntry)
	} else {
		names = []string{name}
		delete(s.cache, name)
	}
	s.mu.Unlock()

	if s.external == nil {
		return
	}
	for _, n := range names {
		_ = s.external.Delete(context.Background(), n)
	}
}

// GetCacheStatus reports the TTL and, per cached checker, its age and
// remaining validity.
func (s *Service) GetCacheStatus() pald.CacheStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]pald.CacheEntryStatus, len(s.cache))
	for name, entry := range s.cache {
		age := time.Since(entry.cachedAt)
		valid := s.ttl <= 0 || age < s.ttl
		expiresIn := 0.0
		if valid && s.ttl > 0 {
			expiresIn = (s.ttl - age).Seconds()
		}
		entries[name] = pald.CacheEntryStatus{
			AgeSeconds: age.Seconds(),
			Valid:      valid,
			ExpiresIn:  expiresIn,
		}
	}

	return pald.CacheStatus{TTLSeconds: s.ttl.Seconds(), Entries: entries}
}

// RunAll runs every registered checker (using cached results when useCache
// is set and the cache is still fresh) and returns the aggregated suite.
func (s *Service) RunAll(ctx context.Context, useCache bool) pald.CheckSuite {
	return s.RunSpecific(ctx, s.CheckerNames(), useCache)
}

// RunSpecific runs the named checkers sequentially and returns the
// aggregated suite.
func (s *Service) RunSpecific(ctx context.Context, names []string, useCache bool) pald.CheckSuite {
	toRun := s.resolveCheckers(names)

	var results []pald.PrerequisiteResult
	for _, c := range toRun {
		if useCache {
			if cached, ok := s.cachedResult(c.Name()); ok {
				results = append(results, cached)
				continue
			}
		}
		start := time.Now()
		result := c.Check(ctx)
		s.observeCheck(c.Name(), result.Status, time.Since(start))
		s.store(c.Name(), result)
		results = append(results, result)
	}

	return aggregate(results)
}

func (s *Service) resolveCheckers(names []string) []Checker {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toRun []Checker
	for _, name := range names {
		if c, ok := s.checkers[name]; ok {
			toRun = append(toRun, c)
		}
	}
	return toRun
}

// runParallelOutcome pairs a checker's result with whether it was served
// from cache, for the suite's aggregate "cached" flag.
type runParallelOutcome struct {
	result pald.PrerequisiteResult
	cached bool
}

// RunParallel runs the named checkers through a worker pool bounded at
// min(len(checkers), 5), each bounded by timeout; a check that exceeds
// timeout or panics synthesises a failing result instead of propagating.
// On an outer failure of the parallel runner, it falls back to sequential
// execution via RunSpecific.
func (s *Service) RunParallel(ctx context.Context, names []string, timeout time.Duration, useCache bool) (suite pald.CheckSuite) {
	toRun := s.resolveCheckers(names)
	if len(toRun) == 0 {
		return aggregate(nil)
	}

	defer func() {
		if r := recover(); r != nil {
			suite = s.RunSpecific(ctx, names, useCache)
		}
	}()

	workers := len(toRun)
	if workers > maxParallelWorkers {
		workers = maxParallelWorkers
	}

	jobs := make(chan Checker, len(toRun))
	out := make(chan runParallelOutcome, len(toRun))

	for i := 0; i < workers; i++ {
		go func() {
			for c := range jobs {
				out <- s.runOneWithTimeout(ctx, c, timeout, useCache)
			}
		}()
	}
	for _, c := range toRun {
		jobs <- c
	}
	close(jobs)

	results := make([]pald.PrerequisiteResult, 0, len(toRun))
	anyCached := false
	for i := 0; i < len(toRun); i++ {
		o := <-out
		results = append(results, o.result)
		anyCached = anyCached || o.cached
	}

	suite = aggregate(results)
	suite.Cached = anyCached
	return suite
}

func (s *Service) runOneWithTimeout(ctx context.Context, c Checker, timeout time.Duration, useCache bool) runParallelOutcome {
	if useCache {
		if cached, ok := s.cachedResult(c.Name()); ok {
			return runParallelOutcome{result: cached, cached: true}
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan pald.PrerequisiteResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errorResult(c, fmt.Sprintf("panic: %v", r))
			}
		}()
		done <- c.Check(checkCtx)
	}()

	select {
	case result := <-done:
		s.observeCheck(c.Name(), result.Status, time.Since(start))
		s.store(c.Name(), result)
		return runParallelOutcome{result: result}
	case <-checkCtx.Done():
		result := timeoutResult(c, timeout)
		s.observeCheck(c.Name(), result.Status, time.Since(start))
		s.store(c.Name(), result)
		return runParallelOutcome{result: result}
	}
}

func timeoutResult(c Checker, timeout time.Duration) pald.PrerequisiteResult {
	return pald.PrerequisiteResult{
		Name:    c.Name(),
		Status:  pald.StatusFailed,
		Message: fmt.Sprintf("Check timed out after %ds", int(timeout.Seconds())),
		ResolutionSteps: []string{
			"Check if the dependency is responsive",
			"Increase the configured timeout",
			"Contact the system administrator",
		},
		CheckTimeSeconds: timeout.Seconds(),
		Kind:             c.Kind(),
	}
}

func errorResult(c Checker, message string) pald.PrerequisiteResult {
	return pald.PrerequisiteResult{
		Name:    c.Name(),
		Status:  pald.StatusFailed,
		Message: fmt.Sprintf("Check failed with error: %s", message),
		Kind:    c.Kind(),
	}
}

// aggregate derives a suite's overall status: FAILED when any required
// check failed, else WARNING when any recommended check did not pass,
// else PASSED.
func aggregate(results []pald.PrerequisiteResult) pald.CheckSuite {
	requiredFailed := false
	recommendedPassed := true

	for _, r := range results {
		switch r.Kind {
		case pald.KindRequired:
			if r.Status == pald.StatusFailed {
				requiredFailed = true
			}
		case pald.KindRecommended:
			if r.Status != pald.StatusPassed {
				recommendedPassed = false
			}
		}
	}

	overall := pald.OverallPassed
	switch {
	case requiredFailed:
		overall = pald.OverallFailed
	case !recommendedPassed:
		overall = pald.OverallWarning
	}

	return pald.CheckSuite{Results: results, OverallStatus: overall}
}
