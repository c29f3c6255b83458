package orchestrator

import (
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/paldcore/paldcore/internal/config"
	"github.com/paldcore/paldcore/pkg/artifact"
	"github.com/paldcore/paldcore/pkg/bias"
	"github.com/paldcore/paldcore/pkg/schema"
)

func testOrchestrator(cfg *config.Config) *Orchestrator {
	reg := schema.NewRegistry("/nonexistent/schema.json", time.Minute, logr.Discard())
	return New(reg, bias.NewManager(), artifact.NewStore(), cfg, logr.Discard())
}

func TestProcess_BasicDescriptionOnly(t *testing.T) {
	cfg := config.Default()
	cfg.PALD.EnableBiasAnalysis = false
	o := testOrchestrator(cfg)

	resp := o.Process(Request{
		UserID:          "user-1",
		SessionID:       "session-1",
		DescriptionText: "A friendly young female teacher robot",
	})

	if resp.ProcessingMetadata.Error {
		t.Fatalf("expected no error, got one")
	}
	if resp.PALDLight == nil {
		t.Fatalf("expected a light record")
	}
	if resp.ProcessingMetadata.ArtifactID == "" {
		t.Fatalf("expected a persisted artifact id")
	}
	if resp.ProcessingMetadata.CompressedPrompt == "" {
		t.Fatalf("expected a non-empty compressed prompt")
	}
	if resp.DeferNotice != "" {
		t.Fatalf("expected no defer notice when bias analysis is disabled, got %q", resp.DeferNotice)
	}
}

func TestProcess_WithEmbodimentProducesDiff(t *testing.T) {
	cfg := config.Default()
	cfg.PALD.EnableBiasAnalysis = false
	o := testOrchestrator(cfg)

	resp := o.Process(Request{
		UserID:            "user-1",
		SessionID:         "session-1",
		DescriptionText:   "A friendly young female teacher",
		EmbodimentCaption: "An elderly male professor",
	})

	if resp.PALDDiffSummary == "" {
		t.Fatalf("expected a non-empty diff summary when an embodiment caption is present")
	}
}

func TestProcess_DeferredBiasScanReturnsNotice(t *testing.T) {
	cfg := config.Default()
	cfg.PALD.AnalysisDeferred = true
	o := testOrchestrator(cfg)

	deferTrue := true
	resp := o.Process(Request{
		UserID:          "user-1",
		SessionID:       "session-1",
		DescriptionText: "A robot tutor",
		DeferBiasScan:   &deferTrue,
	})

	if resp.DeferNotice == "" {
		t.Fatalf("expected a defer notice when defer_bias_scan is set")
	}
}

func TestProcess_EmptyDescriptionFallsBackToPerson(t *testing.T) {
	cfg := config.Default()
	cfg.PALD.EnableBiasAnalysis = false
	o := testOrchestrator(cfg)

	resp := o.Process(Request{UserID: "user-1", SessionID: "session-1", DescriptionText: ""})

	if resp.ProcessingMetadata.CompressedPrompt != "person" {
		t.Fatalf("expected fallback compressed prompt %q, got %q", "person", resp.ProcessingMetadata.CompressedPrompt)
	}
}
