package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ishaileshpant/fl-go/internal/aggregator"
	"github.com/ishaileshpant/fl-go/internal/model"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
process:
  training_rounds: 5
  participants: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.DataType != "F32" {
		t.Errorf("Model.DataType default = %q, want F32", cfg.Model.DataType)
	}
	if cfg.Process.Strategy != string(aggregator.FedAvg) {
		t.Errorf("Process.Strategy default = %q, want FedAvg", cfg.Process.Strategy)
	}
	if cfg.S3.GlobalModel != "global/model.bin" {
		t.Errorf("S3.GlobalModel default = %q", cfg.S3.GlobalModel)
	}
	if cfg.Process.TrainingRounds != 5 || cfg.Process.Participants != 3 {
		t.Errorf("process.* not parsed: %+v", cfg.Process)
	}
}

func TestLoadParsesStrategyAndDataType(t *testing.T) {
	path := writeTempConfig(t, `
model:
  data_type: F64
process:
  strategy: FedAdam
  participants: 2
  training_rounds: 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dt, err := cfg.DataType()
	if err != nil || dt != model.F64 {
		t.Fatalf("DataType() = (%v, %v), want F64", dt, err)
	}
	strat, err := cfg.Strategy()
	if err != nil || strat != aggregator.FedAdam {
		t.Fatalf("Strategy() = (%v, %v), want FedAdam", strat, err)
	}
}

func TestLoadRejectsPathTraversal(t *testing.T) {
	if _, err := Load("../../../etc/passwd.yaml"); err == nil {
		t.Fatal("Load() on a traversal path, want an error")
	}
}

func TestLoadRejectsBadExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.txt")
	if err := os.WriteFile(path, []byte("process: {}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() on a .txt file, want an error")
	}
}
