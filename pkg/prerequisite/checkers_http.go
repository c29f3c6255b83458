package prerequisite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/paldcore/paldcore/pkg/pald"
	sharedhttp "github.com/paldcore/paldcore/pkg/shared/http"
)

// ExternalServiceConnectivityChecker probes a configured URL with an HTTP
// GET and treats any status below 400 as reachable. Repeated failures trip an
// internal circuit breaker so a downed dependency stops being re-dialed on
// every check.
type ExternalServiceConnectivityChecker struct {
	CheckerName string
	URL         string
	Timeout     time.Duration
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
}

// NewExternalServiceConnectivityChecker returns a GET-based connectivity
// checker for url, named name, bounded by timeout.
func NewExternalServiceConnectivityChecker(name, url string, timeout time.Duration) *ExternalServiceConnectivityChecker {
	return &ExternalServiceConnectivityChecker{
		CheckerName: name,
		URL:         url,
		Timeout:     timeout,
		client:      sharedhttp.NewClient(sharedhttp.ProbeClientConfig(timeout)),
		breaker:     newCheckerBreaker(name),
	}
}

func (c *ExternalServiceConnectivityChecker) Name() string            { return c.CheckerName }
func (c *ExternalServiceConnectivityChecker) Kind() pald.CheckerKind { return pald.KindRequired }

// Check performs the GET probe. Any breaker-open state, connection error,
// timeout, or HTTP status of 400 or above maps to a specific failed
// result with remediation steps; the response body is not read.
func (c *ExternalServiceConnectivityChecker) Check(ctx context.Context) pald.PrerequisiteResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return c.failure(fmt.Sprintf("invalid endpoint configuration: %s", err), start)
	}
	req.Header.Set("Accept", "application/json")

	_, err = c.breaker.Execute(func() (interface{}, error) {
		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return resp, nil
	})

	elapsed := time.Since(start)
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return pald.PrerequisiteResult{
				Name:             c.CheckerName,
				Status:           pald.StatusFailed,
				Message:          "circuit open: service recently unreachable",
				ResolutionSteps:  []string{"Wait for the circuit breaker to reset", "Check the upstream service status"},
				CheckTimeSeconds: elapsed.Seconds(),
				Kind:             c.Kind(),
			}
		}
		return c.failureFromErr(err, start)
	}

	return pald.PrerequisiteResult{
		Name:             c.CheckerName,
		Status:           pald.StatusPassed,
		Message:          "service connected successfully",
		CheckTimeSeconds: elapsed.Seconds(),
		Kind:             c.Kind(),
	}
}

func (c *ExternalServiceConnectivityChecker) failure(message string, start time.Time) pald.PrerequisiteResult {
	return pald.PrerequisiteResult{
		Name:    c.CheckerName,
		Status:  pald.StatusFailed,
		Message: message,
		ResolutionSteps: []string{
			"Check if the service is running",
			"Verify the endpoint URL is correct",
			"Check service logs for errors",
		},
		CheckTimeSeconds: time.Since(start).Seconds(),
		Kind:             c.Kind(),
	}
}

func (c *ExternalServiceConnectivityChecker) failureFromErr(err error, start time.Time) pald.PrerequisiteResult {
	switch {
	case isTimeoutErr(err):
		return pald.PrerequisiteResult{
			Name:             c.CheckerName,
			Status:           pald.StatusFailed,
			Message:          fmt.Sprintf("connection timed out after %ds: %s", int(c.Timeout.Seconds()), err),
			ResolutionSteps:  []string{"Check service performance", "Increase timeout settings", "Verify network stability"},
			CheckTimeSeconds: time.Since(start).Seconds(),
			Kind:             c.Kind(),
		}
	default:
		return pald.PrerequisiteResult{
			Name:             c.CheckerName,
			Status:           pald.StatusFailed,
			Message:          fmt.Sprintf("connection failed to %s: %s", c.URL, err),
			ResolutionSteps:  []string{"Check if the service is running", "Verify network connectivity", "Check firewall settings"},
			CheckTimeSeconds: time.Since(start).Seconds(),
			Kind:             c.Kind(),
		}
	}
}

// DependentServiceChecker probes a configured URL with an HTTP HEAD and
// treats 200 or 405 (method not allowed, but reachable) as healthy. It
// gates operations where only liveness, not functional response shape,
// matters.
type DependentServiceChecker struct {
	CheckerName string
	URL         string
	Timeout     time.Duration
	CheckerKind pald.CheckerKind
	client      *http.Client
}

// NewDependentServiceChecker returns a HEAD-based liveness checker for url.
func NewDependentServiceChecker(name, url string, timeout time.Duration, kind pald.CheckerKind) *DependentServiceChecker {
	return &DependentServiceChecker{
		CheckerName: name,
		URL:         url,
		Timeout:     timeout,
		CheckerKind: kind,
		client:      sharedhttp.NewClient(sharedhttp.ProbeClientConfig(timeout)),
	}
}

func (c *DependentServiceChecker) Name() string            { return c.CheckerName }
func (c *DependentServiceChecker) Kind() pald.CheckerKind { return c.CheckerKind }

func (c *DependentServiceChecker) Check(ctx context.Context) pald.PrerequisiteResult {
	start := time.Now()

	if c.URL == "" {
		return pald.PrerequisiteResult{
			Name:    c.CheckerName,
			Status:  pald.StatusFailed,
			Message: "endpoint not configured",
			ResolutionSteps: []string{
				"Set the service endpoint configuration",
			},
			Kind: c.Kind(),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.URL, nil)
	if err != nil {
		return pald.PrerequisiteResult{Name: c.CheckerName, Status: pald.StatusFailed, Message: err.Error(), Kind: c.Kind()}
	}

	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeoutErr(err) {
			return pald.PrerequisiteResult{
				Name:             c.CheckerName,
				Status:           pald.StatusFailed,
				Message:          "service timeout",
				ResolutionSteps:  []string{"Check service performance", "Increase timeout settings", "Verify network stability"},
				CheckTimeSeconds: elapsed.Seconds(),
				Kind:             c.Kind(),
			}
		}
		return pald.PrerequisiteResult{
			Name:             c.CheckerName,
			Status:           pald.StatusFailed,
			Message:          "cannot connect to service",
			ResolutionSteps:  []string{"Check if the service is running", "Verify network connectivity", "Check firewall settings"},
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusMethodNotAllowed {
		return pald.PrerequisiteResult{
			Name:             c.CheckerName,
			Status:           pald.StatusPassed,
			Message:          "service is available",
			Details:          map[string]interface{}{"endpoint": c.URL, "status_code": resp.StatusCode},
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	}

	return pald.PrerequisiteResult{
		Name:             c.CheckerName,
		Status:           pald.StatusFailed,
		Message:          fmt.Sprintf("service returned status %d", resp.StatusCode),
		ResolutionSteps:  []string{"Check if the service is running", "Verify the endpoint URL is correct", "Check service logs for errors"},
		Details:          map[string]interface{}{"endpoint": c.URL, "status_code": resp.StatusCode},
		CheckTimeSeconds: elapsed.Seconds(),
		Kind:             c.Kind(),
	}
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}

func newCheckerBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}
