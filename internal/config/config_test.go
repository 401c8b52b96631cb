package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.TotalTrials(); got != 3*2*10*10 {
		t.Fatalf("TotalTrials()=%d, want 600", got)
	}
	tr, err := cfg.TrafficParams()
	if err != nil {
		t.Fatalf("TrafficParams: %v", err)
	}
	if tr.TOn != 150*time.Millisecond || tr.TOff != 650*time.Millisecond || tr.DataRate != 64000 || tr.PacketSize != 160 {
		t.Fatalf("unexpected traffic: %+v", tr)
	}
	w, err := cfg.WifiLink()
	if err != nil || w.Mode != "OfdmRate9Mbps" {
		t.Fatalf("WifiLink()=%+v,%v", w, err)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
traffic:
  ton: 0.2s
  packet_size: 200
wifi:
  data_rate: 24Mbps
grid:
  min_nodes: 5
  max_nodes: 15
  node_step: 5
  trials: 4
t_student: 0
modalities:
  - name: gold
    bit_error_rate: 1e-9
    data_rate: 20Mbps
    delay: 30ms
simulator:
  csma_command: ["./ns3", "run", "scratch/csma", "--"]
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Traffic.TOn != "0.2s" || cfg.Traffic.TOff != "650ms" {
		t.Errorf("traffic not merged over defaults: %+v", cfg.Traffic)
	}
	if cfg.Traffic.PacketSize != 200 {
		t.Errorf("packet size = %d, want 200", cfg.Traffic.PacketSize)
	}
	if len(cfg.Modalities) != 1 || cfg.Modalities[0].Name != "gold" {
		t.Errorf("unexpected modalities: %+v", cfg.Modalities)
	}
	if got := cfg.Grid.NodeCounts(); len(got) != 3 {
		t.Errorf("unexpected node counts: %v", got)
	}
	if got := cfg.TValue(4); got != 3.1824 {
		t.Errorf("TValue(4)=%v, want table value 3.1824", got)
	}
	if len(cfg.Simulator.CSMACommand) != 4 {
		t.Errorf("unexpected csma command: %v", cfg.Simulator.CSMACommand)
	}
}

func TestLoadConfig_SchemaRejectsWifiRate(t *testing.T) {
	path := writeConfig(t, `
wifi:
  data_rate: 10Mbps
`)
	_, err := Load(path, "")
	if err == nil {
		t.Fatalf("expected schema error for illegal wifi rate")
	}
	if !strings.Contains(err.Error(), "validation") && !strings.Contains(err.Error(), "unify") {
		t.Fatalf("expected schema failure, got %v", err)
	}
}

func TestLoadConfig_SchemaRejectsProbability(t *testing.T) {
	path := writeConfig(t, `
csma:
  error_rate: 1.5
`)
	if _, err := Load(path, ""); err == nil {
		t.Fatalf("expected schema error for error_rate > 1")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateCrossField(t *testing.T) {
	cfg := Default()
	cfg.Grid.MinNodes = 50
	cfg.Grid.MaxNodes = 10
	cfg.Modalities = append(cfg.Modalities, cfg.Modalities[0])
	cfg.Traffic.DataRate = "fast"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"min_nodes 50 exceeds max_nodes 10", "duplicate name", "traffic.data_rate"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestTValueOverride(t *testing.T) {
	cfg := Default()
	if got := cfg.TValue(3); got != 2.2622 {
		t.Fatalf("configured t_student should win, got %v", got)
	}
	cfg.TStudent = 0
	if got := cfg.TValue(10); got != 2.2622 {
		t.Fatalf("table lookup for 10 samples = %v, want 2.2622", got)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/sweep.yaml", "../../schemas/sweep.cue")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.TotalTrials() != def.TotalTrials() || cfg.TStudent != def.TStudent {
		t.Errorf("shipped config drifted from defaults: %+v", cfg.Grid)
	}
	if len(cfg.Modalities) != 3 || cfg.Modalities[2].Delay != "30ms" {
		t.Errorf("unexpected modalities: %+v", cfg.Modalities)
	}
	if len(cfg.Simulator.CSMACommand) == 0 || len(cfg.Simulator.WifiCommand) == 0 {
		t.Errorf("simulator commands missing")
	}
}
