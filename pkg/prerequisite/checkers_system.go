package prerequisite

import (
	"context"
	"fmt"
	"time"

	"github.com/paldcore/paldcore/pkg/pald"
)

// ResourceSampler samples process/host resource usage. Reading real
// memory/disk/cpu percentages is an OS-specific concern left to the
// embedding application; SystemHealthChecker degrades to a warning, not a
// failure, when no sampler is configured.
type ResourceSampler interface {
	Sample(ctx context.Context) (memoryPercent, diskPercent, cpuPercent float64, err error)
}

// SystemHealthChecker samples memory/disk/cpu usage and grades the
// result: all below threshold passes, a single elevated metric warns, and
// two or more elevated metrics fail.
type SystemHealthChecker struct {
	Sampler ResourceSampler
}

// NewSystemHealthChecker returns a checker sampling resources via sampler.
func NewSystemHealthChecker(sampler ResourceSampler) *SystemHealthChecker {
	return &SystemHealthChecker{Sampler: sampler}
}

func (c *SystemHealthChecker) Name() string            { return "system_health" }
func (c *SystemHealthChecker) Kind() pald.CheckerKind { return pald.KindRecommended }

func (c *SystemHealthChecker) Check(ctx context.Context) pald.PrerequisiteResult {
	start := time.Now()

	if c.Sampler == nil {
		return pald.PrerequisiteResult{
			Name:    c.Name(),
			Status:  pald.StatusWarning,
			Message: "system monitoring unavailable",
			ResolutionSteps: []string{
				"Configure a resource sampler",
				"Monitor system resources manually",
			},
			CheckTimeSeconds: time.Since(start).Seconds(),
			Kind:             c.Kind(),
		}
	}

	memPct, diskPct, cpuPct, err := c.Sampler.Sample(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return pald.PrerequisiteResult{
			Name:             c.Name(),
			Status:           pald.StatusWarning,
			Message:          fmt.Sprintf("system health check failed: %s", err),
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	}

	var issues []string
	if memPct > 90 {
		issues = append(issues, fmt.Sprintf("high memory usage: %.1f%%", memPct))
	}
	if diskPct > 90 {
		issues = append(issues, fmt.Sprintf("low disk space: %.1f%% used", diskPct))
	}
	if cpuPct > 95 {
		issues = append(issues, fmt.Sprintf("high CPU usage: %.1f%%", cpuPct))
	}

	details := map[string]interface{}{"memory_percent": memPct, "disk_percent": diskPct, "cpu_percent": cpuPct}

	switch {
	case len(issues) == 0:
		return pald.PrerequisiteResult{
			Name:             c.Name(),
			Status:           pald.StatusPassed,
			Message:          "system resources are healthy",
			Details:          details,
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	case len(issues) == 1:
		return pald.PrerequisiteResult{
			Name:    c.Name(),
			Status:  pald.StatusWarning,
			Message: "system resources are under pressure",
			Details: details,
			ResolutionSteps: []string{
				"Close unnecessary applications",
				"Monitor system performance",
				"Consider restarting services if issues persist",
			},
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	default:
		return pald.PrerequisiteResult{
			Name:    c.Name(),
			Status:  pald.StatusFailed,
			Message: "system resources are critically low",
			Details: details,
			ResolutionSteps: []string{
				"Free up disk space immediately",
				"Close resource-intensive applications",
				"Restart the system if necessary",
				"Contact the system administrator",
			},
			CheckTimeSeconds: elapsed.Seconds(),
			Kind:             c.Kind(),
		}
	}
}
