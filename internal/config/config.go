// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"l3vpn-sweep/internal/scenario"
	"l3vpn-sweep/internal/stats"
	"l3vpn-sweep/internal/units"
)

// Traffic configures the on/off VoIP source of every node.
type Traffic struct {
	TOn        string `yaml:"ton" json:"ton"`
	TOff       string `yaml:"toff" json:"toff"`
	PacketSize uint32 `yaml:"packet_size" json:"packet_size"`
	DataRate   string `yaml:"data_rate" json:"data_rate"`
}

// CSMA configures the origin site's shared medium.
type CSMA struct {
	ErrorRate float64 `yaml:"error_rate" json:"error_rate"`
	DataRate  string  `yaml:"data_rate" json:"data_rate"`
	Delay     string  `yaml:"delay" json:"delay"`
}

// Wifi configures the origin site's wireless link.
type Wifi struct {
	DataRate string `yaml:"data_rate" json:"data_rate"`
}

// Simulator selects and configures the external simulator backend.
type Simulator struct {
	CSMACommand []string `yaml:"csma_command" json:"csma_command"`
	WifiCommand []string `yaml:"wifi_command" json:"wifi_command"`
	Timeout     string   `yaml:"timeout" json:"timeout"`
	Recorded    string   `yaml:"recorded" json:"recorded"`
}

// Output controls where and how plot scripts are written.
type Output struct {
	Dir      string `yaml:"dir" json:"dir"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Terminal string `yaml:"terminal" json:"terminal"`
}

// SweepConfig is the root configuration of a parameter sweep.
type SweepConfig struct {
	Traffic         Traffic             `yaml:"traffic" json:"traffic"`
	CSMA            CSMA                `yaml:"csma" json:"csma"`
	Wifi            Wifi                `yaml:"wifi" json:"wifi"`
	Site2Nodes      int                 `yaml:"site2_nodes" json:"site2_nodes"`
	Grid            scenario.Grid       `yaml:"grid" json:"grid"`
	TStudent        float64             `yaml:"t_student" json:"t_student"`
	Modalities      []scenario.Modality `yaml:"modalities" json:"modalities"`
	Seed            int64               `yaml:"seed" json:"seed"`
	Parallel        int                 `yaml:"parallel" json:"parallel"`
	ContinueOnError bool                `yaml:"continue_on_error" json:"continue_on_error"`
	Simulator       Simulator           `yaml:"simulator" json:"simulator"`
	Output          Output              `yaml:"output" json:"output"`
}

// Default returns the reference parameter set.
func Default() *SweepConfig {
	return &SweepConfig{
		Traffic:    Traffic{TOn: "150ms", TOff: "650ms", PacketSize: 160, DataRate: "64kbps"},
		CSMA:       CSMA{ErrorRate: 1e-10, DataRate: "10Mbps", Delay: "6560ns"},
		Wifi:       Wifi{DataRate: "9Mbps"},
		Site2Nodes: 30,
		Grid:       scenario.DefaultGrid(),
		TStudent:   2.2622,
		Modalities: scenario.DefaultModalities(),
		Seed:       1,
		Parallel:   1,
		Simulator:  Simulator{Timeout: "30m"},
		Output:     Output{Dir: ".", Prefix: "proyecto"},
	}
}

// Load validates a YAML config against a CUE schema and decodes it over the defaults.
// An empty schemaPath selects the embedded schema.
func Load(configPath, cueSchemaPath string) (*SweepConfig, error) {
	// Validate with CUE first
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the schema cannot express.
func (c *SweepConfig) Validate() error {
	var errs []error
	g := c.Grid
	if g.MinNodes <= 0 || g.MaxNodes <= 0 || g.NodeStep <= 0 || g.Trials <= 0 {
		errs = append(errs, fmt.Errorf("grid: min_nodes, max_nodes, node_step and trials must be positive"))
	} else if g.MinNodes > g.MaxNodes {
		errs = append(errs, fmt.Errorf("grid: min_nodes %d exceeds max_nodes %d", g.MinNodes, g.MaxNodes))
	}
	if c.Site2Nodes < 0 {
		errs = append(errs, fmt.Errorf("site2_nodes: must not be negative"))
	}
	if c.TStudent < 0 {
		errs = append(errs, fmt.Errorf("t_student: must not be negative"))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel: must be at least 1"))
	}
	if _, err := c.TrafficParams(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CSMALink(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.WifiLink(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Modalities) == 0 {
		errs = append(errs, fmt.Errorf("modalities: at least one modality is required"))
	}
	seen := make(map[string]bool)
	for i, m := range c.Modalities {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("modalities[%d]: name is required", i))
		} else if seen[m.Name] {
			errs = append(errs, fmt.Errorf("modalities[%d]: duplicate name %q", i, m.Name))
		}
		seen[m.Name] = true
		if m.BitErrorRate < 0 || m.BitErrorRate > 1 {
			errs = append(errs, fmt.Errorf("modalities[%d].bit_error_rate: %g outside [0,1]", i, m.BitErrorRate))
		}
		if _, err := units.ParseDataRate(m.DataRate); err != nil {
			errs = append(errs, fmt.Errorf("modalities[%d].data_rate: %w", i, err))
		}
		if _, err := units.ParseDuration(m.Delay); err != nil {
			errs = append(errs, fmt.Errorf("modalities[%d].delay: %w", i, err))
		}
	}
	if _, err := c.TrialTimeout(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TrafficParams converts the traffic section to typed values.
func (c *SweepConfig) TrafficParams() (scenario.Traffic, error) {
	ton, err := units.ParseDuration(c.Traffic.TOn)
	if err != nil {
		return scenario.Traffic{}, fmt.Errorf("traffic.ton: %w", err)
	}
	toff, err := units.ParseDuration(c.Traffic.TOff)
	if err != nil {
		return scenario.Traffic{}, fmt.Errorf("traffic.toff: %w", err)
	}
	if ton <= 0 || toff <= 0 {
		return scenario.Traffic{}, fmt.Errorf("traffic: ton and toff must be positive")
	}
	if c.Traffic.PacketSize == 0 {
		return scenario.Traffic{}, fmt.Errorf("traffic.packet_size: must be positive")
	}
	rate, err := units.ParseDataRate(c.Traffic.DataRate)
	if err != nil {
		return scenario.Traffic{}, fmt.Errorf("traffic.data_rate: %w", err)
	}
	return scenario.Traffic{TOn: ton, TOff: toff, PacketSize: c.Traffic.PacketSize, DataRate: rate}, nil
}

// CSMALink validates and returns the CSMA parameters.
func (c *SweepConfig) CSMALink() (scenario.CSMALink, error) {
	if c.CSMA.ErrorRate < 0 || c.CSMA.ErrorRate > 1 {
		return scenario.CSMALink{}, fmt.Errorf("csma.error_rate: %g outside [0,1]", c.CSMA.ErrorRate)
	}
	if _, err := units.ParseDataRate(c.CSMA.DataRate); err != nil {
		return scenario.CSMALink{}, fmt.Errorf("csma.data_rate: %w", err)
	}
	if _, err := units.ParseDuration(c.CSMA.Delay); err != nil {
		return scenario.CSMALink{}, fmt.Errorf("csma.delay: %w", err)
	}
	return scenario.CSMALink{ErrorRate: c.CSMA.ErrorRate, DataRate: c.CSMA.DataRate, Delay: c.CSMA.Delay}, nil
}

// WifiLink maps the configured Wi-Fi rate to its PHY mode.
func (c *SweepConfig) WifiLink() (scenario.WifiLink, error) {
	mode, err := units.WifiMode(c.Wifi.DataRate)
	if err != nil {
		return scenario.WifiLink{}, fmt.Errorf("wifi.data_rate: %w", err)
	}
	return scenario.WifiLink{Mode: mode}, nil
}

// TrialTimeout returns the per-trial simulator timeout; 0 disables it.
func (c *SweepConfig) TrialTimeout() (time.Duration, error) {
	if c.Simulator.Timeout == "" {
		return 0, nil
	}
	d, err := units.ParseDuration(c.Simulator.Timeout)
	if err != nil {
		return 0, fmt.Errorf("simulator.timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("simulator.timeout: must not be negative")
	}
	return d, nil
}

// TValue returns the Student t value for a level of n samples. A configured
// t_student wins; otherwise the 95% table is used with n-1 degrees of freedom.
func (c *SweepConfig) TValue(n int) float64 {
	if c.TStudent > 0 {
		return c.TStudent
	}
	return stats.StudentT95(n - 1)
}

// TotalTrials is the number of simulator invocations in a full sweep.
func (c *SweepConfig) TotalTrials() int {
	return len(c.Modalities) * len(scenario.Protocols) * len(c.Grid.NodeCounts()) * c.Grid.Trials
}
