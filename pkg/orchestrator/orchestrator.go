// Package orchestrator implements the PALD processing orchestrator:
// the extract -> diff -> bias -> persist -> respond pipeline that ties the
// schema registry, light extractor, diff engine, and bias job manager into
// the single core API operation.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/paldcore/paldcore/internal/config"
	"github.com/paldcore/paldcore/pkg/artifact"
	"github.com/paldcore/paldcore/pkg/bias"
	"github.com/paldcore/paldcore/pkg/extraction"
	"github.com/paldcore/paldcore/pkg/pald"
	"github.com/paldcore/paldcore/pkg/palddiff"
	"github.com/paldcore/paldcore/pkg/schema"
	"github.com/paldcore/paldcore/pkg/shared/logging"
)

// Request is the core API's inbound shape.
type Request struct {
	UserID            string
	SessionID         string
	DescriptionText   string
	EmbodimentCaption string
	DeferBiasScan     *bool
	ProcessingOptions map[string]interface{}
}

// ProcessingMetadata is the response's metadata block.
type ProcessingMetadata struct {
	ArtifactID           string
	ExtractionConfidence float64
	CompressedPrompt     string
	ProcessingTimestamp  time.Time
	Error                bool
}

// Response is the core API's outbound shape.
type Response struct {
	PALDLight         *pald.LightRecord
	PALDDiffSummary   string
	DeferNotice       string
	ValidationErrors  []string
	ProcessingMetadata ProcessingMetadata
}

// Orchestrator wires the schema registry, extractor, diff engine, bias
// manager, and artifact store into the process
// operation.
type Orchestrator struct {
	schema *schema.Registry
	bias   *bias.Manager
	store  *artifact.Store
	cfg    *config.Config
	log    logr.Logger
}

// New returns an Orchestrator reading the schema via reg, deferring bias
// work to mgr, persisting via store, and gated by cfg.
func New(reg *schema.Registry, mgr *bias.Manager, store *artifact.Store, cfg *config.Config, log logr.Logger) *Orchestrator {
	return &Orchestrator{schema: reg, bias: mgr, store: store, cfg: cfg, log: log}
}

// Process runs the five-stage pipeline. It never returns an error: on an
// outer exception it returns the documented minimal fallback response
// instead.
func (o *Orchestrator) Process(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error(fmt.Errorf("%v", r), "orchestrator panicked, returning fallback response",
				"session_id", req.SessionID)
			resp = fallbackResponse(fmt.Sprintf("processing failed: %v", r))
		}
	}()

	s := o.schema.Load()

	// 1. Extract. The extractor validates the record against the schema
	// itself; its ValidationErrors carry both errors and warnings.
	extracted := extraction.Extract(s, req.DescriptionText, req.EmbodimentCaption)
	record := extracted.Record
	validationErrors := record.ValidationErrors

	// 2. Diff, only when an embodiment caption was supplied.
	var diffResult *pald.DiffResult
	var diffSummary string
	var embodimentRecord *pald.LightRecord
	if req.EmbodimentCaption != "" {
		diffResult, embodimentRecord = o.runDiff(s, req.DescriptionText, req.EmbodimentCaption)
		if diffResult != nil {
			diffSummary = diffResult.Summary
		}
	}

	// 3. Bias analysis.
	deferNotice := o.runBiasStage(req, record, embodimentRecord)

	// 4. Persist.
	artifactID := o.persist(req, record, diffResult)

	// 5. Respond.
	return Response{
		PALDLight:        record,
		PALDDiffSummary:  diffSummary,
		DeferNotice:      deferNotice,
		ValidationErrors: validationErrors,
		ProcessingMetadata: ProcessingMetadata{
			ArtifactID:           artifactID,
			ExtractionConfidence: record.Confidence,
			CompressedPrompt:     extracted.CompressedPrompt,
			ProcessingTimestamp:  time.Now(),
		},
	}
}

// runDiff builds an embodiment-only record and diffs it against a fresh
// description-only record; any failure yields a nil diff result and the
// pipeline continues. The embodiment record is also returned
// so the bias stage can compare it against the description record.
func (o *Orchestrator) runDiff(s *pald.Schema, description, embodiment string) (result *pald.DiffResult, embodimentRecord *pald.LightRecord) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Info("diff stage failed, continuing without a diff", "cause", fmt.Sprintf("%v", r))
			result, embodimentRecord = nil, nil
		}
	}()

	embodimentOnly := extraction.Extract(s, embodiment, "")
	descriptionOnly := extraction.Extract(s, description, "")
	return palddiff.Calculate(descriptionOnly.Record, embodimentOnly.Record), embodimentOnly.Record
}

// runBiasStage applies the bias-analysis configuration gate: disabled,
// synchronous, or deferred through the job manager. It returns a
// non-empty deferral notice
// only on the deferred path.
func (o *Orchestrator) runBiasStage(req Request, description, embodimentRecord *pald.LightRecord) string {
	if o.cfg == nil || !o.cfg.PALD.EnableBiasAnalysis {
		return ""
	}

	deferBias := o.cfg.PALD.AnalysisDeferred
	if req.DeferBiasScan != nil {
		deferBias = *req.DeferBiasScan
	}

	enabled := analysisTypesOf(o.cfg.EnabledAnalysisTypes())
	if len(enabled) == 0 {
		return ""
	}

	if deferBias {
		jobID := uuid.NewString()
		o.bias.CreateJob(jobID, req.SessionID, description, embodimentRecord, enabled, 1)
		return fmt.Sprintf("bias analysis deferred: job %s queued", jobID)
	}

	// Synchronous path: run the job inline, log any failure, and keep
	// the response independent of analysis completion.
	jobID := uuid.NewString()
	o.bias.CreateJob(jobID, req.SessionID, description, embodimentRecord, enabled, 1)
	if _, err := o.bias.ProcessJob(jobID); err != nil {
		o.log.Info("synchronous bias analysis failed", "session_id", req.SessionID, "cause", err.Error())
	}
	return ""
}

// persist stores the artifact and absorbs any failure: a failed
// persistence attempt is logged, and the response is still returned with
// an empty artifact id.
func (o *Orchestrator) persist(req Request, record *pald.LightRecord, diff *pald.DiffResult) (artifactID string) {
	defer func() {
		if r := recover(); r != nil {
			fields := logging.NewFields().Component("orchestrator").Operation("persist").Custom("session_id", req.SessionID)
			o.log.Info("artifact persistence failed", toInterfaceSlice(fields.Error(fmt.Errorf("%v", r)))...)
			artifactID = ""
		}
	}()

	if o.store == nil {
		return ""
	}

	return o.store.Create(artifact.CreateInput{
		SessionID:         req.SessionID,
		UserID:            req.UserID,
		DescriptionText:   req.DescriptionText,
		EmbodimentCaption: req.EmbodimentCaption,
		LightRecord:       record,
		DiffResult:        diff,
		ProcessingMetadata: map[string]interface{}{
			"processing_options": req.ProcessingOptions,
		},
	})
}

// fallbackResponse builds the documented minimal degraded response: an
// empty-person LightRecord, the fixed "person" compressed prompt, and a
// single validation error naming cause.
func fallbackResponse(cause string) Response {
	rec := pald.NewLightRecord()
	rec.Confidence = 0

	return Response{
		PALDLight:        rec,
		ValidationErrors: []string{cause},
		ProcessingMetadata: ProcessingMetadata{
			CompressedPrompt:    "person",
			ProcessingTimestamp: time.Now(),
			Error:               true,
		},
	}
}

func analysisTypesOf(names []string) []pald.AnalysisType {
	out := make([]pald.AnalysisType, len(names))
	for i, n := range names {
		out[i] = pald.AnalysisType(n)
	}
	return out
}

func toInterfaceSlice(fields logging.StandardFields) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}
