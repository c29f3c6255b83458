package pald

import "time"

// JobStatus is a BiasJob's lifecycle state.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// AnalysisType names one of the six configured bias/consistency analyses.
type AnalysisType string

const (
	AnalysisAgeShift               AnalysisType = "age_shift"
	AnalysisGenderConformity       AnalysisType = "gender_conformity"
	AnalysisEthnicityConsistency   AnalysisType = "ethnicity_consistency"
	AnalysisOccupationalStereotypes AnalysisType = "occupational_stereotypes"
	AnalysisAmbivalentStereotypes  AnalysisType = "ambivalent_stereotypes"
	AnalysisMultipleStereotyping   AnalysisType = "multiple_stereotyping"
)

// AllAnalysisTypes lists the six catalog entries in a stable order.
var AllAnalysisTypes = []AnalysisType{
	AnalysisAgeShift,
	AnalysisGenderConformity,
	AnalysisEthnicityConsistency,
	AnalysisOccupationalStereotypes,
	AnalysisAmbivalentStereotypes,
	AnalysisMultipleStereotyping,
}

// BiasResult is the outcome of one analysis type run on a job.
type BiasResult struct {
	AnalysisType    AnalysisType
	Findings        map[string]interface{}
	Confidence      float64
	Indicators      []string
	Recommendations []string
	Metadata        map[string]interface{}
	Error           string
}

// BiasJob is a queued unit of deferred bias analysis over a description/
// embodiment pair.
type BiasJob struct {
	JobID             string
	SessionID         string
	CreatedAt         time.Time
	DescriptionRecord *LightRecord
	EmbodimentRecord  *LightRecord
	AnalysisTypes     []AnalysisType
	Priority          int
	Status            JobStatus
	Results           []BiasResult
	Error             string
	ProcessedAt       *time.Time
}

// JobResult is the per-job outcome of process_one/process_batch.
type JobResult struct {
	JobID           string
	Status          JobStatus
	Results         []BiasResult
	Error           string
	ProcessingTime  time.Duration
}

// Artifact is a persisted record of one processed request, pseudonymised
// for privacy-preserving retention.
type Artifact struct {
	ArtifactID         string
	SessionID          string
	UserPseudonym      string
	DescriptionText    string
	EmbodimentCaption  string
	LightRecord        *LightRecord
	DiffResult         *DiffResult
	ProcessingMetadata map[string]interface{}
	CreatedAt          time.Time
	InputHashes        map[string]string
}

// PrerequisiteStatus is a checker's outcome.
type PrerequisiteStatus string

const (
	StatusPassed  PrerequisiteStatus = "passed"
	StatusFailed  PrerequisiteStatus = "failed"
	StatusWarning PrerequisiteStatus = "warning"
	StatusUnknown PrerequisiteStatus = "unknown"
)

// CheckerKind classifies a checker's importance to an operation's policy.
type CheckerKind string

const (
	KindRequired    CheckerKind = "required"
	KindRecommended CheckerKind = "recommended"
	KindOptional    CheckerKind = "optional"
)

// PrerequisiteResult is one checker's outcome.
type PrerequisiteResult struct {
	Name              string
	Status            PrerequisiteStatus
	Message           string
	Details           map[string]interface{}
	ResolutionSteps   []string
	CheckTimeSeconds  float64
	Kind              CheckerKind
}

// OverallStatus is a CheckSuite's aggregated status.
type OverallStatus string

const (
	OverallPassed  OverallStatus = "passed"
	OverallFailed  OverallStatus = "failed"
	OverallWarning OverallStatus = "warning"
)

// CheckSuite aggregates the results of a set of prerequisite checks run
// for one operation invocation.
type CheckSuite struct {
	Results       []PrerequisiteResult
	OverallStatus OverallStatus
	Cached        bool
}

// Recommendation describes remediation for a failed/warning check.
type Recommendation struct {
	CheckerName         string
	Issue               string
	Priority            string
	ResolutionSteps     []string
	EstimatedTime       string
	AutomationAvailable bool
}

// Readiness is the derived outcome of validate_for_operation for one
// operation: whether it may proceed, and which checker names blocked it.
type Readiness struct {
	Ready                   bool
	CanProceedWithWarnings  bool
	RequiredFailures        []string
	RecommendedFailures     []string
	Cached                  bool
}

// CacheEntryStatus describes one cached checker result's age relative to
// the registry TTL.
type CacheEntryStatus struct {
	AgeSeconds  float64
	Valid       bool
	ExpiresIn   float64
}

// CacheStatus is the Service-wide snapshot returned by get_cache_status.
type CacheStatus struct {
	TTLSeconds float64
	Entries    map[string]CacheEntryStatus
}

// FallbackOption describes one degraded-mode path available when a named
// checker has failed.
type FallbackOption struct {
	Available    bool
	Description  string
	Limitations  []string
}

// FallbackBehavior is the fallback-options structure returned for an
// operation given its current failed-checker list.
type FallbackBehavior struct {
	FallbackAvailable   bool
	AllowPartialFailure bool
	Options             map[string]FallbackOption
}
