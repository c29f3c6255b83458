package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "pald-config-test")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
schema:
  file_path: "/etc/pald/schema.json"
  cache_ttl: 600s
  enable_schema_evolution: true

pald:
  mandatory_pald_extraction: true
  pald_analysis_deferred: false
  enable_bias_analysis: true

bias:
  enable_age_shift_analysis: true
  enable_gender_conformity_analysis: true
  enable_ethnicity_analysis: false
  enable_occupational_stereotype_analysis: true
  enable_ambivalent_stereotype_analysis: true
  enable_multiple_stereotyping_analysis: true
  bias_job_batch_size: 25
  bias_analysis_timeout: 45s
  max_concurrent_bias_jobs: 8
  queue_processing_interval: 90s

privacy:
  data_retention_days: 30
  enable_pseudonymization: true
`
				err := os.WriteFile(configFile, []byte(validConfig), 0644)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := Load(configFile)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(cfg).NotTo(gomega.BeNil())

				gomega.Expect(cfg.Schema.FilePath).To(gomega.Equal("/etc/pald/schema.json"))
				gomega.Expect(cfg.Schema.CacheTTL.Std()).To(gomega.Equal(600 * time.Second))
				gomega.Expect(cfg.Schema.EnableSchemaEvolution).To(gomega.BeTrue())

				gomega.Expect(cfg.PALD.MandatoryExtraction).To(gomega.BeTrue())
				gomega.Expect(cfg.PALD.AnalysisDeferred).To(gomega.BeFalse())
				gomega.Expect(cfg.PALD.EnableBiasAnalysis).To(gomega.BeTrue())

				gomega.Expect(cfg.Bias.EnableEthnicityConsistency).To(gomega.BeFalse())
				gomega.Expect(cfg.Bias.JobBatchSize).To(gomega.Equal(25))
				gomega.Expect(cfg.Bias.AnalysisTimeout.Std()).To(gomega.Equal(45 * time.Second))
				gomega.Expect(cfg.Bias.MaxConcurrentJobs).To(gomega.Equal(8))
				gomega.Expect(cfg.Bias.QueueProcessingInterval.Std()).To(gomega.Equal(90 * time.Second))

				gomega.Expect(cfg.Privacy.DataRetentionDays).To(gomega.Equal(30))
				gomega.Expect(cfg.Privacy.EnablePseudonymization).To(gomega.BeTrue())
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				minimalConfig := `
schema:
  file_path: "schema.json"
`
				err := os.WriteFile(configFile, []byte(minimalConfig), 0644)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})

			It("should load with defaults for missing values", func() {
				cfg, err := Load(configFile)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				gomega.Expect(cfg.Schema.FilePath).To(gomega.Equal("schema.json"))
				gomega.Expect(cfg.Bias.JobBatchSize).To(gomega.Equal(10))
				gomega.Expect(cfg.Bias.MaxConcurrentJobs).To(gomega.Equal(5))
				gomega.Expect(cfg.Privacy.DataRetentionDays).To(gomega.Equal(90))
				gomega.Expect(cfg.PALD.MandatoryExtraction).To(gomega.BeTrue())
			})
		})

		Context("when config file does not exist", func() {
			It("should return an error", func() {
				_, err := Load("/nonexistent/config.yaml")
				gomega.Expect(err).To(gomega.HaveOccurred())
			})
		})

		Context("when config file has invalid YAML", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte("schema: [unterminated"), 0644)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				gomega.Expect(err).To(gomega.HaveOccurred())
			})
		})

		Context("when config has invalid duration formats", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte("schema:\n  cache_ttl: not-a-duration\n"), 0644)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				gomega.Expect(err).To(gomega.HaveOccurred())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = Default()
		})

		Context("when config is valid", func() {
			It("should pass validation", func() {
				gomega.Expect(cfg.Validate()).NotTo(gomega.HaveOccurred())
			})
		})

		Context("when mandatory_pald_extraction is cleared", func() {
			BeforeEach(func() {
				cfg.PALD.MandatoryExtraction = false
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})

		Context("when bias job batch size is invalid", func() {
			BeforeEach(func() {
				cfg.Bias.JobBatchSize = 0
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})

		Context("when bias job batch size is negative", func() {
			BeforeEach(func() {
				cfg.Bias.JobBatchSize = -1
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})

		Context("when bias analysis timeout is invalid", func() {
			BeforeEach(func() {
				cfg.Bias.AnalysisTimeout = 0
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})

		Context("when max concurrent bias jobs is invalid", func() {
			BeforeEach(func() {
				cfg.Bias.MaxConcurrentJobs = 0
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})

		Context("when queue processing interval is invalid", func() {
			BeforeEach(func() {
				cfg.Bias.QueueProcessingInterval = 0
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})

		Context("when data retention days is invalid", func() {
			BeforeEach(func() {
				cfg.Privacy.DataRetentionDays = 0
			})

			It("should return a validation error", func() {
				gomega.Expect(cfg.Validate()).To(gomega.HaveOccurred())
			})
		})
	})

	Describe("loadFromEnv", func() {
		AfterEach(func() {
			for _, key := range []string{
				"PALD_SCHEMA_FILE_PATH", "PALD_SCHEMA_CACHE_TTL", "PALD_ENABLE_SCHEMA_EVOLUTION",
				"PALD_ANALYSIS_DEFERRED", "ENABLE_BIAS_ANALYSIS", "BIAS_JOB_BATCH_SIZE",
				"BIAS_ANALYSIS_TIMEOUT", "MAX_CONCURRENT_BIAS_JOBS", "QUEUE_PROCESSING_INTERVAL",
				"DATA_RETENTION_DAYS", "ENABLE_PSEUDONYMIZATION",
			} {
				os.Unsetenv(key)
			}
		})

		Context("when environment variables are set", func() {
			BeforeEach(func() {
				os.Setenv("PALD_SCHEMA_FILE_PATH", "/env/schema.json")
				os.Setenv("BIAS_JOB_BATCH_SIZE", "42")
				os.Setenv("ENABLE_BIAS_ANALYSIS", "false")
				os.Setenv("DATA_RETENTION_DAYS", "7")

				err := os.WriteFile(configFile, []byte("schema:\n  file_path: unused.json\n"), 0644)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})

			It("should override values loaded from the file", func() {
				cfg, err := Load(configFile)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())

				gomega.Expect(cfg.Schema.FilePath).To(gomega.Equal("/env/schema.json"))
				gomega.Expect(cfg.Bias.JobBatchSize).To(gomega.Equal(42))
				gomega.Expect(cfg.PALD.EnableBiasAnalysis).To(gomega.BeFalse())
				gomega.Expect(cfg.Privacy.DataRetentionDays).To(gomega.Equal(7))
			})
		})

		Context("when no environment variables are set", func() {
			BeforeEach(func() {
				err := os.WriteFile(configFile, []byte("schema:\n  file_path: file.json\n"), 0644)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
			})

			It("should not modify config loaded from the file", func() {
				cfg, err := Load(configFile)
				gomega.Expect(err).NotTo(gomega.HaveOccurred())
				gomega.Expect(cfg.Schema.FilePath).To(gomega.Equal("file.json"))
			})
		})
	})
})
