package bias

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/paldcore/paldcore/pkg/metrics"
	"github.com/paldcore/paldcore/pkg/pald"
	"github.com/paldcore/paldcore/pkg/shared/errors"
)

// analysisFuncs maps each non-aggregate analysis type to its implementation.
// multiple_stereotyping is handled separately since it consumes the other
// results rather than the raw records.
var analysisFuncs = map[pald.AnalysisType]func(description, embodiment *pald.LightRecord) pald.BiasResult{
	pald.AnalysisAgeShift:               analyzeAgeShift,
	pald.AnalysisGenderConformity:       analyzeGenderConformity,
	pald.AnalysisEthnicityConsistency:   analyzeEthnicityConsistency,
	pald.AnalysisOccupationalStereotypes: analyzeOccupationalStereotypes,
	pald.AnalysisAmbivalentStereotypes:  analyzeAmbivalentStereotypes,
}

// defaultAnalysisTimeout bounds the combined runtime of one job's
// analyses. The deadline is checked before each analysis starts: every
// analysis not yet started once it has passed is recorded as a failed,
// timed-out result, and the job is not aborted. An analysis already
// running is not interrupted and its result is kept.
const defaultAnalysisTimeout = 30 * time.Second

// Manager manages the in-process queue of deferred bias analysis jobs.
type Manager struct {
	mu              sync.Mutex
	jobs            map[string]*pald.BiasJob
	analysisTimeout time.Duration
	metrics         *metrics.Metrics
}

// NewManager returns an empty job manager.
func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*pald.BiasJob), analysisTimeout: defaultAnalysisTimeout}
}

// SetAnalysisTimeout overrides the per-job analysis time budget.
func (m *Manager) SetAnalysisTimeout(d time.Duration) {
	if d > 0 {
		m.analysisTimeout = d
	}
}

// SetMetrics attaches m so job creation and processing are observed on the
// paldcore_bias_* collectors; a Manager with no attached Metrics behaves
// identically, just unobserved.
func (m *Manager) SetMetrics(metrics *metrics.Metrics) {
	m.metrics = metrics
}

// CreateJob queues a new bias analysis job and returns its ID. A nil or
// empty analysisTypes defaults to running all six catalog entries.
func (m *Manager) CreateJob(jobID, sessionID string, description, embodiment *pald.LightRecord, analysisTypes []pald.AnalysisType, priority int) string {
	if len(analysisTypes) == 0 {
		analysisTypes = pald.AllAnalysisTypes
	}

	job := &pald.BiasJob{
		JobID:             jobID,
		SessionID:         sessionID,
		CreatedAt:         time.Now(),
		DescriptionRecord: description,
		EmbodimentRecord:  embodiment,
		AnalysisTypes:     analysisTypes,
		Priority:          priority,
		Status:            pald.JobPending,
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	pendingCount := m.countPendingLocked()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.BiasJobsQueuedTotal.WithLabelValues(strconv.Itoa(priority)).Inc()
		m.metrics.BiasQueueDepth.Set(float64(pendingCount))
	}

	return jobID
}

func (m *Manager) countPendingLocked() int {
	count := 0
	for _, job := range m.jobs {
		if job.Status == pald.JobPending {
			count++
		}
	}
	return count
}

// claimNextBatch atomically marks up to n pending jobs (highest priority,
// then oldest first) as processing and returns them, so concurrent callers
// never claim the same job twice.
func (m *Manager) claimNextBatch(n int) []*pald.BiasJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*pald.BiasJob
	for _, job := range m.jobs {
		if job.Status == pald.JobPending {
			pending = append(pending, job)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if n > len(pending) {
		n = len(pending)
	}

	batch := pending[:n]
	for _, job := range batch {
		job.Status = pald.JobProcessing
	}
	return batch
}

// ProcessJob runs every requested analysis type for jobID, tolerating
// partial failures from individual analyses, and records the outcome.
func (m *Manager) ProcessJob(jobID string) (pald.JobResult, error) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if ok && job.Status == pald.JobPending {
		job.Status = pald.JobProcessing
	}
	m.mu.Unlock()

	if !ok {
		return pald.JobResult{}, errors.FailedToWithDetails("process bias job", "bias", jobID, fmt.Errorf("job not found"))
	}

	return m.processClaimedJob(job), nil
}

// ProcessBatch claims and processes up to batchSize pending jobs, highest
// priority first and oldest-created first within a priority tier.
func (m *Manager) ProcessBatch(batchSize int) []pald.JobResult {
	batch := m.claimNextBatch(batchSize)

	results := make([]pald.JobResult, 0, len(batch))
	for _, job := range batch {
		results = append(results, m.processClaimedJob(job))
	}
	return results
}

// observeJobOutcome records processing duration by outcome and, for a
// completed job, per-analysis-type failure counts; it is a no-op when no
// Metrics is attached. Must be called while m.mu is held, matching the
// call sites in processClaimedJob.
func (m *Manager) observeJobOutcome(status pald.JobStatus, elapsed time.Duration, results []pald.BiasResult) {
	if m.metrics == nil {
		return
	}
	m.metrics.BiasJobProcessingSeconds.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	m.metrics.BiasQueueDepth.Set(float64(m.countPendingLocked()))
	for _, r := range results {
		if r.Error != "" {
			m.metrics.BiasJobFailuresTotal.WithLabelValues(string(r.AnalysisType)).Inc()
		}
	}
}

func (m *Manager) processClaimedJob(job *pald.BiasJob) pald.JobResult {
	start := time.Now()

	results, err := runAnalyses(job, m.analysisTimeout)

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	processedAt := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		job.Status = pald.JobFailed
		job.Error = err.Error()
		job.ProcessedAt = &processedAt
		m.observeJobOutcome(pald.JobFailed, elapsed, nil)
		return pald.JobResult{JobID: job.JobID, Status: pald.JobFailed, Error: err.Error(), ProcessingTime: elapsed}
	}

	m.observeJobOutcome(pald.JobCompleted, elapsed, results)
	job.Results = results
	job.Status = pald.JobCompleted
	job.ProcessedAt = &processedAt
	return pald.JobResult{JobID: job.JobID, Status: pald.JobCompleted, Results: results, ProcessingTime: elapsed}
}

// runAnalyses executes every analysis type configured on job, tolerating
// per-analysis panics, and runs multiple_stereotyping last over the
// individual results if requested. Once the shared time budget is spent,
// remaining analyses record a failing result instead of running.
func runAnalyses(job *pald.BiasJob, timeout time.Duration) (results []pald.BiasResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bias job panicked: %v", r)
		}
	}()

	deadline := time.Now().Add(timeout)

	var individual []pald.BiasResult
	runMultiple := false

	for _, t := range job.AnalysisTypes {
		if t == pald.AnalysisMultipleStereotyping {
			runMultiple = true
			continue
		}
		fn, ok := analysisFuncs[t]
		if !ok {
			continue
		}
		if timeout > 0 && !time.Now().Before(deadline) {
			individual = append(individual, timedOutResult(t, timeout))
			continue
		}
		individual = append(individual, fn(job.DescriptionRecord, job.EmbodimentRecord))
	}

	results = individual
	if runMultiple {
		results = append(results, analyzeMultipleStereotyping(individual))
	}
	return results, nil
}

func timedOutResult(t pald.AnalysisType, timeout time.Duration) pald.BiasResult {
	return pald.BiasResult{
		AnalysisType: t,
		Findings:     map[string]interface{}{},
		Error:        fmt.Sprintf("analysis skipped: job time budget of %s exhausted", timeout),
		Indicators:   []string{"analysis failed due to error"},
	}
}

// Status returns jobID's current lifecycle state.
func (m *Manager) Status(jobID string) (pald.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return "", errors.FailedToWithDetails("get bias job status", "bias", jobID, fmt.Errorf("job not found"))
	}
	return job.Status, nil
}

// Results returns a completed job's analysis results.
func (m *Manager) Results(jobID string) ([]pald.BiasResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, errors.FailedToWithDetails("get bias job results", "bias", jobID, fmt.Errorf("job not found"))
	}
	if job.Status != pald.JobCompleted {
		return nil, errors.FailedToWithDetails("get bias job results", "bias", jobID, fmt.Errorf("job is not completed (status: %s)", job.Status))
	}
	return job.Results, nil
}

// PendingCount returns the number of jobs still awaiting processing.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, job := range m.jobs {
		if job.Status == pald.JobPending {
			count++
		}
	}
	return count
}

// Cleanup removes completed or failed jobs processed before cutoff,
// returning how many were removed.
func (m *Manager) Cleanup(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if (job.Status == pald.JobCompleted || job.Status == pald.JobFailed) &&
			job.ProcessedAt != nil && job.ProcessedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}
