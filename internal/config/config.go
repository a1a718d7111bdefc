// Package config loads the engine's deployment configuration, extending the
// teacher's YAML-driven federation.FLPlan with the keys SPEC_FULL.md §5
// enumerates (api.*, model.*, process.*, s3.*, job.*, log.*, masking.*)
// alongside the plan's existing collaborator/task/monitoring/security
// fields. Modeled on pkg/federation/parser.go's gopkg.in/yaml.v3 loader;
// this package does its own YAML load and keeps its own copy of the
// path-validation helper (validateFilePath).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ishaileshpant/fl-go/internal/aggregator"
	"github.com/ishaileshpant/fl-go/internal/model"
	"github.com/ishaileshpant/fl-go/pkg/federation"
)

// APIConfig is spec §6's api.* block.
type APIConfig struct {
	ServerAddress string `yaml:"server_address"`
	RestAPI       string `yaml:"rest_api"`
}

// ModelConfig is spec §6's model.* block.
type ModelConfig struct {
	DataType string `yaml:"data_type"`
}

// ProcessConfig is spec §6's process.* block.
type ProcessConfig struct {
	TrainingRounds uint32  `yaml:"training_rounds"`
	Participants   uint32  `yaml:"participants"`
	Strategy       string  `yaml:"strategy"`
	Eta            float64 `yaml:"eta"`
	Beta1          float64 `yaml:"beta_1"`
	Beta2          float64 `yaml:"beta_2"`
	Tau            float64 `yaml:"tau"`
}

// S3Config is spec §6's s3.* block (blobstore.s3blob.Config source).
type S3Config struct {
	AccessKey       string `yaml:"access_key"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	GlobalModel     string `yaml:"global_model"`
	Endpoint        string `yaml:"endpoint"`
}

// JobConfig is spec §6's job.* block (optional outbound metrics sink).
type JobConfig struct {
	JobID    string `yaml:"job_id"`
	JobToken string `yaml:"job_token"`
	Route    string `yaml:"route"`
}

// LogConfig is spec §6's log.* block.
type LogConfig struct {
	Filter string `yaml:"filter"`
}

// MaskingConfig toggles spec §4.2/§4.4's masked-object path.
type MaskingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the full deployment configuration: SPEC_FULL.md's consolidated
// schema plus the teacher's federation.FLPlan (collaborators, aggregator
// address, tasks, algorithm name, monitoring, security) embedded unchanged,
// so a single YAML document serves both cmd/aggregator and cmd/collaborator.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Model   ModelConfig   `yaml:"model"`
	Process ProcessConfig `yaml:"process"`
	S3      S3Config      `yaml:"s3"`
	Job     JobConfig     `yaml:"job"`
	Log     LogConfig     `yaml:"log"`
	Masking MaskingConfig `yaml:"masking"`

	federation.FLPlan `yaml:",inline"`
}

// Load reads and validates path as a YAML Config (spec §6 "a single
// --config <path> is sufficient").
func Load(path string) (*Config, error) {
	if err := validateFilePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 - path validated above
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.ServerAddress == "" {
		cfg.API.ServerAddress = "0.0.0.0:50051"
	}
	if cfg.API.RestAPI == "" {
		cfg.API.RestAPI = "0.0.0.0:8080"
	}
	if cfg.Model.DataType == "" {
		cfg.Model.DataType = "F32"
	}
	if cfg.Process.Strategy == "" {
		cfg.Process.Strategy = string(aggregator.FedAvg)
	}
	if cfg.Process.Eta == 0 {
		cfg.Process.Eta = 0.1
	}
	if cfg.Process.Beta1 == 0 {
		cfg.Process.Beta1 = 0.9
	}
	if cfg.Process.Beta2 == 0 {
		cfg.Process.Beta2 = 0.99
	}
	if cfg.Process.Tau == 0 {
		cfg.Process.Tau = 1e-9
	}
	if cfg.S3.GlobalModel == "" {
		cfg.S3.GlobalModel = "global/model.bin"
	}
	if cfg.Log.Filter == "" {
		cfg.Log.Filter = "info"
	}
}

// DataType parses Model.DataType into model.DataType.
func (c *Config) DataType() (model.DataType, error) {
	return model.ParseDataType(c.Model.DataType)
}

// Strategy parses Process.Strategy into aggregator.Strategy.
func (c *Config) Strategy() (aggregator.Strategy, error) {
	switch aggregator.Strategy(c.Process.Strategy) {
	case aggregator.FedAvg, aggregator.FedAdaGrad, aggregator.FedAdam, aggregator.FedYogi:
		return aggregator.Strategy(c.Process.Strategy), nil
	default:
		return "", fmt.Errorf("config: unknown process.strategy %q", c.Process.Strategy)
	}
}

// AggregatorParams builds aggregator.Params from Process.*.
func (c *Config) AggregatorParams() aggregator.Params {
	return aggregator.Params{
		Eta:    ratFromFloat(c.Process.Eta),
		Beta1:  ratFromFloat(c.Process.Beta1),
		Beta2:  ratFromFloat(c.Process.Beta2),
		Tau:    ratFromFloat(c.Process.Tau),
		Quorum: int(c.Process.Participants),
	}
}

// validateFilePath mirrors pkg/federation/parser.go's traversal/extension/
// length checks, reused for the engine's own config file.
func validateFilePath(path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("config: invalid file path: path traversal detected")
	}
	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config: invalid file extension: only .yaml and .yml files are allowed")
	}
	if len(cleanPath) > 256 {
		return fmt.Errorf("config: file path too long: maximum 256 characters allowed")
	}
	return nil
}
