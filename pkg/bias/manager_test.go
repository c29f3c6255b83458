package bias

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paldcore/paldcore/pkg/pald"
)

func emptyRecord() *pald.LightRecord {
	return pald.NewLightRecord()
}

func TestManager_PriorityOrderedBatchProcessing(t *testing.T) {
	m := NewManager()

	m.CreateJob("job-1", "session", emptyRecord(), emptyRecord(), []pald.AnalysisType{pald.AnalysisAgeShift}, 1)
	time.Sleep(time.Millisecond)
	m.CreateJob("job-2", "session", emptyRecord(), emptyRecord(), []pald.AnalysisType{pald.AnalysisAgeShift}, 3)
	time.Sleep(time.Millisecond)
	m.CreateJob("job-3", "session", emptyRecord(), emptyRecord(), []pald.AnalysisType{pald.AnalysisAgeShift}, 2)

	results := m.ProcessBatch(2)
	if len(results) != 2 {
		t.Fatalf("expected 2 processed jobs, got %d", len(results))
	}
	if results[0].JobID != "job-2" || results[1].JobID != "job-3" {
		t.Fatalf("expected priority order [job-2, job-3], got [%s, %s]", results[0].JobID, results[1].JobID)
	}

	if pending := m.PendingCount(); pending != 1 {
		t.Fatalf("expected 1 remaining pending job, got %d", pending)
	}
}

func TestManager_ProcessJob_AgeShiftDetection(t *testing.T) {
	m := NewManager()

	description := pald.NewLightRecord()
	description.Set("detailed_level", "age", pald.NewInt(25))

	embodiment := pald.NewLightRecord()
	embodiment.Set("detailed_level", "age", pald.NewInt(70))

	jobID := m.CreateJob("job-age", "session", description, embodiment, []pald.AnalysisType{pald.AnalysisAgeShift}, 1)

	result, err := m.ProcessJob(jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != pald.JobCompleted {
		t.Fatalf("expected job completed, got %s", result.Status)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result.Results))
	}

	ageResult := result.Results[0]
	if len(ageResult.Indicators) == 0 {
		t.Fatalf("expected age shift indicators for a 45 year difference")
	}
}

func TestManager_MultipleStereotypingAggregatesIndividualResults(t *testing.T) {
	m := NewManager()

	description := pald.NewLightRecord()
	description.Set("detailed_level", "age", pald.NewInt(20))
	description.Set("detailed_level", "gender", pald.NewString("female"))
	description.Set("detailed_level", "clothing", pald.NewString("pink dress with makeup"))

	embodiment := pald.NewLightRecord()
	embodiment.Set("detailed_level", "age", pald.NewInt(65))
	embodiment.Set("detailed_level", "gender", pald.NewString("female"))
	embodiment.Set("detailed_level", "clothing", pald.NewString("pink frilly dress"))

	jobID := m.CreateJob("job-multi", "session", description, embodiment, nil, 1)

	result, err := m.ProcessJob(jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != len(pald.AllAnalysisTypes) {
		t.Fatalf("expected %d results (one per analysis type), got %d", len(pald.AllAnalysisTypes), len(result.Results))
	}

	last := result.Results[len(result.Results)-1]
	if last.AnalysisType != pald.AnalysisMultipleStereotyping {
		t.Fatalf("expected multiple_stereotyping to run last, got %s", last.AnalysisType)
	}
}

func TestManager_ConcurrentBatchesClaimEachJobOnce(t *testing.T) {
	m := NewManager()
	const jobCount = 20

	for i := 0; i < jobCount; i++ {
		m.CreateJob(fmt.Sprintf("job-%d", i), "session", emptyRecord(), emptyRecord(), []pald.AnalysisType{pald.AnalysisAgeShift}, i%3)
	}

	var mu sync.Mutex
	processed := make(map[string]int)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				results := m.ProcessBatch(3)
				if len(results) == 0 {
					return
				}
				mu.Lock()
				for _, r := range results {
					processed[r.JobID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, processed, jobCount)
	for id, n := range processed {
		assert.Equalf(t, 1, n, "job %s was claimed by more than one worker", id)
	}
	assert.Equal(t, 0, m.PendingCount())
}

func TestManager_ExhaustedTimeBudgetFailsAnalysesNotJob(t *testing.T) {
	m := NewManager()
	m.SetAnalysisTimeout(time.Nanosecond)

	jobID := m.CreateJob("job-budget", "session", emptyRecord(), emptyRecord(),
		[]pald.AnalysisType{pald.AnalysisAgeShift, pald.AnalysisGenderConformity}, 1)
	time.Sleep(time.Millisecond)

	result, err := m.ProcessJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, pald.JobCompleted, result.Status)
	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Contains(t, r.Error, "time budget")
	}
}

func TestManager_GetResultsBeforeCompletionFails(t *testing.T) {
	m := NewManager()
	jobID := m.CreateJob("job-pending", "session", emptyRecord(), emptyRecord(), nil, 1)

	if _, err := m.Results(jobID); err == nil {
		t.Fatalf("expected error fetching results of a pending job")
	}
}

func TestManager_Cleanup(t *testing.T) {
	m := NewManager()
	jobID := m.CreateJob("job-done", "session", emptyRecord(), emptyRecord(), []pald.AnalysisType{pald.AnalysisAgeShift}, 1)
	if _, err := m.ProcessJob(jobID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed := m.Cleanup(time.Now().Add(time.Hour))
	if removed != 1 {
		t.Fatalf("expected 1 job cleaned up, got %d", removed)
	}
	if m.PendingCount() != 0 {
		t.Fatalf("expected no pending jobs after cleanup")
	}
}
