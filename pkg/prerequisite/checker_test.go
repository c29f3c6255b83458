package prerequisite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/paldcore/paldcore/pkg/cache"
	"github.com/paldcore/paldcore/pkg/pald"
)

type fakeChecker struct {
	name  string
	kind  pald.CheckerKind
	delay time.Duration
	result pald.PrerequisiteResult
}

func (c *fakeChecker) Name() string            { return c.name }
func (c *fakeChecker) Kind() pald.CheckerKind { return c.kind }

func (c *fakeChecker) Check(ctx context.Context) pald.PrerequisiteResult {
	// Ignores ctx deliberately: runOneWithTimeout's own timeout goroutine
	// must be what produces the synthesised failed/timeout result, not
	// cooperative cancellation inside the checker itself.
	time.Sleep(c.delay)
	r := c.result
	r.Name = c.name
	r.Kind = c.kind
	return r
}

func passed(name string) pald.PrerequisiteResult {
	return pald.PrerequisiteResult{Name: name, Status: pald.StatusPassed}
}

func TestRunAll_AggregatesOverallStatus(t *testing.T) {
	s := NewService(time.Minute)
	s.Register(&fakeChecker{name: "a", kind: pald.KindRequired, result: passed("a")})
	s.Register(&fakeChecker{name: "b", kind: pald.KindRecommended, result: pald.PrerequisiteResult{Status: pald.StatusWarning}})

	suite := s.RunAll(context.Background(), false)
	if suite.OverallStatus != pald.OverallWarning {
		t.Fatalf("expected WARNING when a recommended check warns, got %s", suite.OverallStatus)
	}
}

func TestRunAll_RequiredFailureIsFailed(t *testing.T) {
	s := NewService(time.Minute)
	s.Register(&fakeChecker{name: "a", kind: pald.KindRequired, result: pald.PrerequisiteResult{Status: pald.StatusFailed}})

	suite := s.RunAll(context.Background(), false)
	if suite.OverallStatus != pald.OverallFailed {
		t.Fatalf("expected FAILED, got %s", suite.OverallStatus)
	}
}

// A fast checker passes within timeout; a slow one exceeds it and is
// synthesised as a failed, timed-out result.
func TestValidateForOperation_Timeout(t *testing.T) {
	s := NewService(time.Minute)
	s.Register(&fakeChecker{name: "fast", kind: pald.KindRequired, delay: 10 * time.Millisecond, result: passed("fast")})
	s.Register(&fakeChecker{name: "slow", kind: pald.KindRequired, delay: 2 * time.Second, result: passed("slow")})
	s.RegisterOperation(OperationPolicy{
		OperationName: "op",
		Required:      []string{"fast", "slow"},
		TimeoutSeconds: 1,
	})

	suite := s.ValidateForOperation(context.Background(), "op", false, true)

	if suite.OverallStatus != pald.OverallFailed {
		t.Fatalf("expected FAILED overall since slow is required, got %s", suite.OverallStatus)
	}

	var sawSlowTimeout bool
	for _, r := range suite.Results {
		if r.Name == "slow" {
			sawSlowTimeout = true
			if r.Status != pald.StatusFailed {
				t.Fatalf("expected slow check to be FAILED, got %s", r.Status)
			}
			if !strings.Contains(r.Message, "timed out after 1s") {
				t.Fatalf("expected timeout message to mention '1s', got %q", r.Message)
			}
		}
	}
	if !sawSlowTimeout {
		t.Fatalf("expected a result for the slow checker")
	}
}

func TestValidateForOperation_UnknownOperationFallsBackToRunAll(t *testing.T) {
	s := NewService(time.Minute)
	s.Register(&fakeChecker{name: "a", kind: pald.KindRequired, result: passed("a")})

	suite := s.ValidateForOperation(context.Background(), "nonexistent-op", false, false)
	if len(suite.Results) != 1 {
		t.Fatalf("expected RunAll fallback to run every registered checker, got %d results", len(suite.Results))
	}
}

func TestCheckOperationReadiness_ConsentFailureBlocks(t *testing.T) {
	s := NewService(time.Minute)
	s.Register(&fakeChecker{
		name: "consent_status",
		kind: pald.KindRequired,
		result: pald.PrerequisiteResult{
			Status:  pald.StatusFailed,
			Message: "missing required consents: ai_interaction",
		},
	})
	s.RegisterOperation(OperationPolicy{
		OperationName: "chat",
		Required:      []string{"consent_status"},
		TimeoutSeconds: 5,
	})

	readiness := s.CheckOperationReadiness(context.Background(), "chat")
	if readiness.Ready {
		t.Fatalf("expected readiness to be false when a required consent check fails")
	}
	found := false
	for _, name := range readiness.RequiredFailures {
		if name == "consent_status" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected consent_status in required failures, got %v", readiness.RequiredFailures)
	}
}

func TestGetCacheStatus_EmptyAfterClearCache(t *testing.T) {
	s := NewService(time.Minute)
	s.Register(&fakeChecker{name: "a", kind: pald.KindRequired, result: passed("a")})

	s.RunAll(context.Background(), true)
	if len(s.GetCacheStatus().Entries) == 0 {
		t.Fatalf("expected a cache entry after RunAll")
	}

	s.ClearCache("")
	if len(s.GetCacheStatus().Entries) != 0 {
		t.Fatalf("expected an empty cache status after ClearCache()")
	}
}

func TestRunSpecific_UsesCacheWhenRequested(t *testing.T) {
	calls := 0
	s := NewService(time.Minute)
	s.Register(&countingChecker{name: "a", calls: &calls})

	s.RunSpecific(context.Background(), []string{"a"}, true)
	s.RunSpecific(context.Background(), []string{"a"}, true)

	if calls != 1 {
		t.Fatalf("expected the checker to run exactly once when cache is used, ran %d times", calls)
	}
}

type countingChecker struct {
	name  string
	calls *int
}

func (c *countingChecker) Name() string            { return c.name }
func (c *countingChecker) Kind() pald.CheckerKind { return pald.KindRequired }
func (c *countingChecker) Check(context.Context) pald.PrerequisiteResult {
	*c.calls++
	return pald.PrerequisiteResult{Name: c.name, Status: pald.StatusPassed, Kind: pald.KindRequired}
}

func TestBuildRecommendations_SortedByPriority(t *testing.T) {
	suite := pald.CheckSuite{Results: []pald.PrerequisiteResult{
		{Name: "optional-check", Status: pald.StatusFailed, Kind: pald.KindOptional},
		{Name: "recommended-check", Status: pald.StatusFailed, Kind: pald.KindRecommended},
		{Name: "database_connectivity", Status: pald.StatusFailed, Kind: pald.KindRequired},
		{Name: "required-warning", Status: pald.StatusWarning, Kind: pald.KindRequired},
	}}

	recs := BuildRecommendations(suite)
	if len(recs) != 4 {
		t.Fatalf("expected 4 recommendations, got %d", len(recs))
	}
	want := []string{"critical", "high", "medium", "low"}
	for i, r := range recs {
		if r.Priority != want[i] {
			t.Fatalf("expected priority order %v, got %s at index %d", want, r.Priority, i)
		}
	}
	if recs[0].EstimatedTime != "2-5 minutes" {
		t.Fatalf("expected known estimated time for database_connectivity, got %q", recs[0].EstimatedTime)
	}
}

func TestService_ExternalStoreSharesCachedResults(t *testing.T) {
	calls := 0
	external := cache.NewMemoryStore()

	s1 := NewServiceWithStore(time.Minute, external)
	s1.Register(&countingChecker{name: "a", calls: &calls})
	s1.RunSpecific(context.Background(), []string{"a"}, true)

	// A second Service instance backed by the same external store should
	// see the cached result without re-running the checker.
	s2 := NewServiceWithStore(time.Minute, external)
	s2.Register(&countingChecker{name: "a", calls: &calls})
	s2.RunSpecific(context.Background(), []string{"a"}, true)

	if calls != 1 {
		t.Fatalf("expected the checker to run once across both services sharing a store, ran %d times", calls)
	}
}
