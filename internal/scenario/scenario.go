package scenario

import (
	"fmt"
	"strconv"
	"time"

	"l3vpn-sweep/internal/units"
)

// Protocol is the access link technology at the origin site.
type Protocol string

const (
	CSMA Protocol = "csma"
	WiFi Protocol = "wifi"
)

// Protocols is the sweep order.
var Protocols = []Protocol{CSMA, WiFi}

// Title is the dataset title used in plots.
func (p Protocol) Title() string {
	switch p {
	case CSMA:
		return "Protocolo: CSMA"
	case WiFi:
		return "Protocolo: WIFI"
	default:
		return "Protocolo: " + string(p)
	}
}

// ParseProtocol accepts "csma" or "wifi".
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case CSMA, WiFi:
		return Protocol(s), nil
	}
	return "", fmt.Errorf("unknown protocol %q", s)
}

// Modality is an L3VPN service tier: the quality of the provider p2p link.
type Modality struct {
	Name         string  `yaml:"name" json:"name"`
	BitErrorRate float64 `yaml:"bit_error_rate" json:"bit_error_rate"`
	DataRate     string  `yaml:"data_rate" json:"data_rate"`
	Delay        string  `yaml:"delay" json:"delay"`
}

// DefaultModalities returns the three provider tiers, worst first.
func DefaultModalities() []Modality {
	return []Modality{
		{Name: "mod1", BitErrorRate: 1e-6, DataRate: "2Mbps", Delay: "200ms"},
		{Name: "mod2", BitErrorRate: 1e-7, DataRate: "7Mbps", Delay: "120ms"},
		{Name: "mod3", BitErrorRate: 1e-9, DataRate: "20Mbps", Delay: "30ms"},
	}
}

// Traffic describes the on/off VoIP source of every node.
type Traffic struct {
	TOn        time.Duration
	TOff       time.Duration
	PacketSize uint32
	DataRate   uint64 // bit/s during the on period
}

// CSMALink holds the shared-medium parameters.
type CSMALink struct {
	ErrorRate float64
	DataRate  string
	Delay     string
}

// WifiLink holds the Wi-Fi PHY mode, e.g. "OfdmRate9Mbps".
type WifiLink struct {
	Mode string
}

// Scenario is the full parameter set of one simulator invocation.
type Scenario struct {
	Modality      Modality
	ModalityIndex int
	Protocol      Protocol
	Nodes         int
	Site2Nodes    int
	Traffic       Traffic
	CSMA          CSMALink
	Wifi          WifiLink
	Trial         int
	Seed          int64
}

// Key identifies a trial inside a sweep.
type Key struct {
	Modality string
	Protocol Protocol
	Nodes    int
	Trial    int
}

// Key returns the identity of s.
func (s Scenario) Key() Key {
	return Key{Modality: s.Modality.Name, Protocol: s.Protocol, Nodes: s.Nodes, Trial: s.Trial}
}

// Args renders s as --key=value arguments in the simulator's naming.
// Only the parameters of the active protocol are included.
func (s Scenario) Args() []string {
	args := []string{
		"--nodes=" + strconv.Itoa(s.Nodes),
		"--site2Nodes=" + strconv.Itoa(s.Site2Nodes),
		"--ton=" + units.FormatDuration(s.Traffic.TOn),
		"--toff=" + units.FormatDuration(s.Traffic.TOff),
		"--sizePkt=" + strconv.FormatUint(uint64(s.Traffic.PacketSize), 10),
		"--dataRate=" + units.FormatDataRate(s.Traffic.DataRate),
	}
	switch s.Protocol {
	case CSMA:
		args = append(args,
			"--csma_perror="+strconv.FormatFloat(s.CSMA.ErrorRate, 'g', -1, 64),
			"--csma_dataRate="+s.CSMA.DataRate,
			"--csma_delay="+s.CSMA.Delay,
		)
	case WiFi:
		args = append(args, "--wifi_mode="+s.Wifi.Mode)
	}
	args = append(args,
		"--p2p_perror="+strconv.FormatFloat(s.Modality.BitErrorRate, 'g', -1, 64),
		"--p2p_dataRate="+s.Modality.DataRate,
		"--p2p_delay="+s.Modality.Delay,
		"--RngRun="+strconv.FormatInt(s.Seed, 10),
	)
	return args
}

// Grid is the node-count sweep and the number of trials per level.
type Grid struct {
	MinNodes int `yaml:"min_nodes" json:"min_nodes"`
	MaxNodes int `yaml:"max_nodes" json:"max_nodes"`
	NodeStep int `yaml:"node_step" json:"node_step"`
	Trials   int `yaml:"trials" json:"trials"`
}

// DefaultGrid sweeps 10..100 nodes in steps of 10 with 10 trials each.
func DefaultGrid() Grid {
	return Grid{MinNodes: 10, MaxNodes: 100, NodeStep: 10, Trials: 10}
}

// NodeCounts lists the levels of the sweep in ascending order.
func (g Grid) NodeCounts() []int {
	if g.NodeStep <= 0 || g.MinNodes > g.MaxNodes {
		return nil
	}
	var out []int
	for n := g.MinNodes; n <= g.MaxNodes; n += g.NodeStep {
		out = append(out, n)
	}
	return out
}
