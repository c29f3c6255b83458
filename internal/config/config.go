// Package config loads and validates the PALD core's runtime configuration:
// schema location and cache policy, bias-analysis gating and batch sizing,
// prerequisite-check timeouts, and data-retention/pseudonymization policy.
// Values load from YAML with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML scalars in either
// Go duration-string form ("45s") or bare integer seconds, so env
// overrides and YAML can both use plain second counts.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if secs, err := strconv.Atoi(value.Value); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the single process-wide configuration object for the PALD core.
type Config struct {
	Schema  SchemaConfig  `yaml:"schema"`
	PALD    PALDConfig    `yaml:"pald"`
	Bias    BiasConfig    `yaml:"bias"`
	Privacy PrivacyConfig `yaml:"privacy"`
}

// SchemaConfig controls schema-file location and reload policy.
type SchemaConfig struct {
	FilePath             string   `yaml:"file_path" validate:"required"`
	CacheTTL             Duration `yaml:"cache_ttl"`
	EnableSchemaEvolution bool    `yaml:"enable_schema_evolution"`
}

// PALDConfig gates the core extraction/bias pipeline.
type PALDConfig struct {
	MandatoryExtraction bool `yaml:"mandatory_pald_extraction" validate:"eq=true"`
	AnalysisDeferred    bool `yaml:"pald_analysis_deferred"`
	EnableBiasAnalysis  bool `yaml:"enable_bias_analysis"`
}

// BiasConfig configures the bias job manager: per-analysis gates, batching,
// concurrency, and timeouts.
type BiasConfig struct {
	EnableAgeShift               bool          `yaml:"enable_age_shift_analysis"`
	EnableGenderConformity       bool          `yaml:"enable_gender_conformity_analysis"`
	EnableEthnicityConsistency   bool          `yaml:"enable_ethnicity_analysis"`
	EnableOccupationalStereotypes bool         `yaml:"enable_occupational_stereotype_analysis"`
	EnableAmbivalentStereotypes  bool          `yaml:"enable_ambivalent_stereotype_analysis"`
	EnableMultipleStereotyping   bool          `yaml:"enable_multiple_stereotyping_analysis"`
	JobBatchSize                 int      `yaml:"bias_job_batch_size" validate:"gt=0"`
	AnalysisTimeout               Duration `yaml:"bias_analysis_timeout" validate:"gt=0"`
	MaxConcurrentJobs             int      `yaml:"max_concurrent_bias_jobs" validate:"gt=0"`
	QueueProcessingInterval       Duration `yaml:"queue_processing_interval" validate:"gt=0"`
}

// PrivacyConfig controls retention and pseudonymization of persisted
// artifacts.
type PrivacyConfig struct {
	DataRetentionDays     int  `yaml:"data_retention_days" validate:"gt=0"`
	EnablePseudonymization bool `yaml:"enable_pseudonymization"`
}

// EnabledAnalysisTypes returns the subset of the six-entry analysis catalog
// this configuration enables, in catalog order. multiple_stereotyping is
// included only when individually enabled; callers are responsible for
// ordering it last within a job.
func (c *Config) EnabledAnalysisTypes() []string {
	type flag struct {
		name    string
		enabled bool
	}
	flags := []flag{
		{"age_shift", c.Bias.EnableAgeShift},
		{"gender_conformity", c.Bias.EnableGenderConformity},
		{"ethnicity_consistency", c.Bias.EnableEthnicityConsistency},
		{"occupational_stereotypes", c.Bias.EnableOccupationalStereotypes},
		{"ambivalent_stereotypes", c.Bias.EnableAmbivalentStereotypes},
		{"multiple_stereotyping", c.Bias.EnableMultipleStereotyping},
	}
	var out []string
	for _, f := range flags {
		if f.enabled {
			out = append(out, f.name)
		}
	}
	return out
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Schema: SchemaConfig{
			FilePath:              "schema/pald_schema.json",
			CacheTTL:              Duration(300 * time.Second),
			EnableSchemaEvolution: true,
		},
		PALD: PALDConfig{
			MandatoryExtraction: true,
			AnalysisDeferred:    true,
			EnableBiasAnalysis:  true,
		},
		Bias: BiasConfig{
			EnableAgeShift:                true,
			EnableGenderConformity:        true,
			EnableEthnicityConsistency:    true,
			EnableOccupationalStereotypes: true,
			EnableAmbivalentStereotypes:   true,
			EnableMultipleStereotyping:    true,
			JobBatchSize:                  10,
			AnalysisTimeout:                Duration(30 * time.Second),
			MaxConcurrentJobs:              5,
			QueueProcessingInterval:        Duration(60 * time.Second),
		},
		Privacy: PrivacyConfig{
			DataRetentionDays:      90,
			EnablePseudonymization: true,
		},
	}
}

// Load reads a YAML configuration file, applies environment-variable
// overrides, and validates the result. On any error the returned Config is
// nil.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromEnv overrides fields set via YAML with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("PALD_SCHEMA_FILE_PATH"); v != "" {
		c.Schema.FilePath = v
	}
	if v := os.Getenv("PALD_SCHEMA_CACHE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Schema.CacheTTL = Duration(time.Duration(secs) * time.Second)
		}
	}
	if v := os.Getenv("PALD_ENABLE_SCHEMA_EVOLUTION"); v != "" {
		c.Schema.EnableSchemaEvolution = parseBool(v)
	}
	if v := os.Getenv("PALD_ANALYSIS_DEFERRED"); v != "" {
		c.PALD.AnalysisDeferred = parseBool(v)
	}
	if v := os.Getenv("ENABLE_BIAS_ANALYSIS"); v != "" {
		c.PALD.EnableBiasAnalysis = parseBool(v)
	}
	if v := os.Getenv("BIAS_JOB_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bias.JobBatchSize = n
		}
	}
	if v := os.Getenv("BIAS_ANALYSIS_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Bias.AnalysisTimeout = Duration(time.Duration(secs) * time.Second)
		}
	}
	if v := os.Getenv("ENABLE_AGE_SHIFT_ANALYSIS"); v != "" {
		c.Bias.EnableAgeShift = parseBool(v)
	}
	if v := os.Getenv("ENABLE_GENDER_CONFORMITY_ANALYSIS"); v != "" {
		c.Bias.EnableGenderConformity = parseBool(v)
	}
	if v := os.Getenv("ENABLE_ETHNICITY_ANALYSIS"); v != "" {
		c.Bias.EnableEthnicityConsistency = parseBool(v)
	}
	if v := os.Getenv("ENABLE_OCCUPATIONAL_STEREOTYPE_ANALYSIS"); v != "" {
		c.Bias.EnableOccupationalStereotypes = parseBool(v)
	}
	if v := os.Getenv("ENABLE_AMBIVALENT_STEREOTYPE_ANALYSIS"); v != "" {
		c.Bias.EnableAmbivalentStereotypes = parseBool(v)
	}
	if v := os.Getenv("ENABLE_MULTIPLE_STEREOTYPING_ANALYSIS"); v != "" {
		c.Bias.EnableMultipleStereotyping = parseBool(v)
	}
	if v := os.Getenv("MAX_CONCURRENT_BIAS_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bias.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("QUEUE_PROCESSING_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Bias.QueueProcessingInterval = Duration(time.Duration(secs) * time.Second)
		}
	}
	if v := os.Getenv("DATA_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Privacy.DataRetentionDays = n
		}
	}
	if v := os.Getenv("ENABLE_PSEUDONYMIZATION"); v != "" {
		c.Privacy.EnablePseudonymization = parseBool(v)
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true")
}

var validate = validator.New()

// Validate enforces the struct-tag bounds plus the invariant that
// mandatory_pald_extraction is never cleared.
func (c *Config) Validate() error {
	if !c.PALD.MandatoryExtraction {
		return fmt.Errorf("mandatory_pald_extraction must always be true")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
