package prerequisite

import (
	"context"
	"sort"
	"time"

	"github.com/paldcore/paldcore/pkg/pald"
)

// OperationPolicy names which checkers gate one operation, at what
// timeout, and whether partial failure is tolerated.
type OperationPolicy struct {
	OperationName       string
	Required            []string
	Recommended         []string
	Optional            []string
	TimeoutSeconds       int
	AllowPartialFailure bool
}

func (p OperationPolicy) allNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{p.Required, p.Recommended, p.Optional} {
		for _, name := range group {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

func (p OperationPolicy) contains(group []string, name string) bool {
	for _, n := range group {
		if n == name {
			return true
		}
	}
	return false
}

// DefaultOperationPolicies returns the four built-in operation
// configurations: user registration, chat, image generation, and system
// startup.
func DefaultOperationPolicies() []OperationPolicy {
	return []OperationPolicy{
		{
			OperationName:       "registration",
			Required:            []string{"database_connectivity"},
			Recommended:         []string{"system_health"},
			TimeoutSeconds:       15,
			AllowPartialFailure: true,
		},
		{
			OperationName: "chat",
			Required: []string{
				"external_service_connectivity",
				"database_connectivity",
				"consent_status",
			},
			Recommended:         []string{"system_health"},
			TimeoutSeconds:       30,
			AllowPartialFailure: false,
		},
		{
			OperationName:       "image_generation",
			Required:            []string{"database_connectivity", "consent_status"},
			Recommended:         []string{"system_health"},
			TimeoutSeconds:       25,
			AllowPartialFailure: false,
		},
		{
			OperationName:       "system_startup",
			Required:            []string{"database_connectivity"},
			Recommended:         []string{"external_service_connectivity", "system_health"},
			TimeoutSeconds:       45,
			AllowPartialFailure: true,
		},
	}
}

// RegisterDefaultOperations registers the four built-in operation policies.
func (s *Service) RegisterDefaultOperations() {
	for _, p := range DefaultOperationPolicies() {
		s.RegisterOperation(p)
	}
}

func (s *Service) operationPolicy(opName string) (OperationPolicy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.operations[opName]
	return p, ok
}

// ValidateForOperation runs the checkers named by opName's policy,
// falling back to RunAll for an unregistered operation name. The policy's
// timeout bounds each checker only when parallel is set; the sequential
// path applies no timeout.
func (s *Service) ValidateForOperation(ctx context.Context, opName string, useCache, parallel bool) pald.CheckSuite {
	policy, ok := s.operationPolicy(opName)
	if !ok {
		return s.RunAll(ctx, useCache)
	}

	names := policy.allNames()
	timeout := time.Duration(policy.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var suite pald.CheckSuite
	if parallel {
		suite = s.RunParallel(ctx, names, timeout, useCache)
	} else {
		suite = s.RunSpecific(ctx, names, useCache)
	}

	// A checker's intrinsic Kind() need not match the role this operation
	// assigns it; reclassify the suite's overall status against the
	// operation's own required/recommended grouping.
	suite.OverallStatus = overallStatusForPolicy(suite.Results, policy)
	return suite
}

func overallStatusForPolicy(results []pald.PrerequisiteResult, policy OperationPolicy) pald.OverallStatus {
	requiredFailed := false
	recommendedPassed := true

	for _, r := range results {
		switch {
		case policy.contains(policy.Required, r.Name):
			if r.Status == pald.StatusFailed {
				requiredFailed = true
			}
		case policy.contains(policy.Recommended, r.Name):
			if r.Status != pald.StatusPassed {
				recommendedPassed = false
			}
		}
	}

	switch {
	case requiredFailed:
		return pald.OverallFailed
	case !recommendedPassed:
		return pald.OverallWarning
	default:
		return pald.OverallPassed
	}
}

// CheckOperationReadiness runs ValidateForOperation and derives the
// readiness verdict: ready iff no required checker failed; recommended
// failures never block.
func (s *Service) CheckOperationReadiness(ctx context.Context, opName string) pald.Readiness {
	suite := s.ValidateForOperation(ctx, opName, true, true)
	policy, hasPolicy := s.operationPolicy(opName)

	var requiredFailed, recommendedFailed []string
	for _, r := range suite.Results {
		switch r.Status {
		case pald.StatusFailed:
			if !hasPolicy || policy.contains(policy.Required, r.Name) {
				requiredFailed = append(requiredFailed, r.Name)
			} else if policy.contains(policy.Recommended, r.Name) {
				recommendedFailed = append(recommendedFailed, r.Name)
			}
		case pald.StatusWarning:
			if hasPolicy && policy.contains(policy.Recommended, r.Name) {
				recommendedFailed = append(recommendedFailed, r.Name)
			}
		}
	}

	ready := len(requiredFailed) == 0
	return pald.Readiness{
		Ready:                  ready,
		CanProceedWithWarnings: ready,
		RequiredFailures:       requiredFailed,
		RecommendedFailures:    recommendedFailed,
		Cached:                 suite.Cached,
	}
}

// estimatedResolutionTimes looks up a human resolution-time estimate by
// checker name; absent entries fall back to "Unknown".
var estimatedResolutionTimes = map[string]string{
	"external_service_connectivity": "5-10 minutes",
	"database_connectivity":         "2-5 minutes",
	"consent_status":                "1-2 minutes",
	"system_health":                 "Variable (depends on issue)",
	"dependent_service":             "5-10 minutes",
}

// automatable lists checker names for which remediation can be driven
// automatically (e.g. redirecting to a consent page) rather than requiring
// manual operator action.
var automatable = map[string]bool{
	"consent_status": true,
}

// BuildRecommendations synthesises a Recommendation per failed/warning
// result in suite, sorted critical -> high -> medium -> low and then by
// input order.
func BuildRecommendations(suite pald.CheckSuite) []pald.Recommendation {
	var out []pald.Recommendation
	for _, r := range suite.Results {
		if r.Status != pald.StatusFailed && r.Status != pald.StatusWarning {
			continue
		}
		out = append(out, pald.Recommendation{
			CheckerName:         r.Name,
			Issue:               r.Message,
			Priority:            recommendationPriority(r),
			ResolutionSteps:     r.ResolutionSteps,
			EstimatedTime:       estimatedTime(r.Name),
			AutomationAvailable: automatable[r.Name],
		})
	}

	priorityRank := map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}

func recommendationPriority(r pald.PrerequisiteResult) string {
	switch r.Kind {
	case pald.KindRequired:
		if r.Status == pald.StatusFailed {
			return "critical"
		}
		return "high"
	case pald.KindRecommended:
		return "medium"
	default:
		return "low"
	}
}

func estimatedTime(checkerName string) string {
	if t, ok := estimatedResolutionTimes[checkerName]; ok {
		return t
	}
	return "Unknown"
}

// fallbackCatalog describes, per checker, whether a degraded mode exists
// when that checker has failed and what it costs.
var fallbackCatalog = map[string]pald.FallbackOption{
	"external_service_connectivity": {
		Available:   true,
		Description: "Use cached responses or simplified interactions",
		Limitations: []string{"No real-time responses", "Limited personalization"},
	},
	"database_connectivity": {
		Available:   false,
		Description: "The database is required for core functionality",
		Limitations: []string{"Cannot save user data", "No persistent state"},
	},
	"consent_status": {
		Available:   false,
		Description: "Consent is required for AI-driven features",
		Limitations: []string{"Cannot use AI features", "Limited functionality"},
	},
	"system_health": {
		Available:   true,
		Description: "Continue with performance warnings",
		Limitations: []string{"Slower response times", "Potential instability"},
	},
}

// FallbackBehavior reports, for opName given its currently failed checker
// names, which degraded-mode options are available.
func (s *Service) FallbackBehavior(opName string, failedCheckers []string) pald.FallbackBehavior {
	policy, ok := s.operationPolicy(opName)
	if !ok {
		return pald.FallbackBehavior{FallbackAvailable: false}
	}

	options := make(map[string]pald.FallbackOption)
	for _, name := range failedCheckers {
		if opt, ok := fallbackCatalog[name]; ok {
			options[name] = opt
		}
	}

	return pald.FallbackBehavior{
		FallbackAvailable:   len(options) > 0,
		AllowPartialFailure: policy.AllowPartialFailure,
		Options:             options,
	}
}
