package simulator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"l3vpn-sweep/internal/results"
	"l3vpn-sweep/internal/scenario"
)

const okJSON = `{"error_pct":1.5,"delay_ms":210.25,"jitter_ms":3}`

func testScenario(p scenario.Protocol) scenario.Scenario {
	return scenario.Scenario{
		Modality:   scenario.DefaultModalities()[0],
		Protocol:   p,
		Nodes:      20,
		Site2Nodes: 30,
		Traffic:    scenario.Traffic{TOn: 150 * time.Millisecond, TOff: 650 * time.Millisecond, PacketSize: 160, DataRate: 64000},
		CSMA:       scenario.CSMALink{ErrorRate: 1e-10, DataRate: "10Mbps", Delay: "6560ns"},
		Wifi:       scenario.WifiLink{Mode: "OfdmRate9Mbps"},
		Trial:      3,
		Seed:       4,
	}
}

func TestParseOutput(t *testing.T) {
	cases := []struct {
		name    string
		out     string
		want    Result
		wantErr bool
	}{
		{name: "single", out: okJSON + "\n", want: Result{1.5, 210.25, 3}},
		{name: "noise before", out: "Simulation start\n" + okJSON, want: Result{1.5, 210.25, 3}},
		{name: "last wins", out: `{"error_pct":9,"delay_ms":9,"jitter_ms":9}` + "\n" + okJSON + "\ndone\n", want: Result{1.5, 210.25, 3}},
		{name: "missing field", out: `{"error_pct":1,"delay_ms":2}`, wantErr: true},
		{name: "no json", out: "nothing here\n", wantErr: true},
		{name: "empty", out: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseOutput([]byte(tc.out))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutput: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestExecRun(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	script := `printf '%s\n' "$@" > "` + argsFile + `"; echo starting; echo '` + okJSON + `'`
	e := NewExec([]string{"sh", "-c", script, "sim"}, nil, 10*time.Second)

	res, err := e.Run(context.Background(), testScenario(scenario.CSMA))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.DelayMs != 210.25 {
		t.Fatalf("delay = %v, want 210.25", res.DelayMs)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	args := string(data)
	for _, want := range []string{"--nodes=20", "--csma_delay=6560ns", "--p2p_delay=200ms", "--p2p_dataRate=2Mbps", "--RngRun=4"} {
		if !strings.Contains(args, want+"\n") {
			t.Errorf("missing argument %s in:\n%s", want, args)
		}
	}
	if strings.Contains(args, "--wifi_mode") {
		t.Errorf("csma run should not receive wifi arguments")
	}
}

func TestExecRunFailure(t *testing.T) {
	e := NewExec([]string{"sh", "-c", "echo boom >&2; exit 3", "sim"}, nil, 10*time.Second)
	_, err := e.Run(context.Background(), testScenario(scenario.CSMA))
	if err == nil {
		t.Fatalf("expected error")
	}
	var te *TrialError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TrialError, got %T", err)
	}
	if te.Key.Nodes != 20 || te.Key.Trial != 3 {
		t.Fatalf("unexpected key %+v", te.Key)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should carry stderr: %v", err)
	}
}

func TestExecRunMissingCommand(t *testing.T) {
	e := NewExec([]string{"true"}, nil, 0)
	if _, err := e.Run(context.Background(), testScenario(scenario.WiFi)); err == nil {
		t.Fatalf("expected error for unconfigured wifi command")
	}
}

func TestExecRunTimeout(t *testing.T) {
	e := NewExec([]string{"sh", "-c", "exec sleep 5", "sim"}, nil, 50*time.Millisecond)
	_, err := e.Run(context.Background(), testScenario(scenario.CSMA))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRecorded(t *testing.T) {
	log := strings.Join([]string{
		`{"run_id":"r","modality":"mod1","protocol":"csma","nodes":20,"trial":3,"error_pct":1,"delay_ms":2,"jitter_ms":3}`,
		`{"run_id":"r","modality":"mod1","protocol":"wifi","nodes":20,"trial":3,"failed":true,"error":"x"}`,
	}, "\n")
	rec, err := LoadRecorded(strings.NewReader(log))
	if err != nil {
		t.Fatalf("LoadRecorded: %v", err)
	}
	if rec.Len() != 1 {
		t.Fatalf("Len = %d, want 1", rec.Len())
	}
	got, err := rec.Run(context.Background(), testScenario(scenario.CSMA))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != (Result{1, 2, 3}) {
		t.Fatalf("got %+v", got)
	}
	if _, err := rec.Run(context.Background(), testScenario(scenario.WiFi)); err == nil {
		t.Fatalf("failed rows must not be replayed")
	}
}

func TestRecordedCancelled(t *testing.T) {
	rec := NewRecorded([]results.TrialRow{{Modality: "mod1", Protocol: "csma", Nodes: 20, Trial: 3}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := rec.Run(ctx, testScenario(scenario.CSMA)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFunc(t *testing.T) {
	var s Simulator = Func(func(ctx context.Context, sc scenario.Scenario) (Result, error) {
		return Result{ErrorPct: float64(sc.Nodes)}, nil
	})
	res, _ := s.Run(context.Background(), testScenario(scenario.CSMA))
	if res.ErrorPct != 20 {
		t.Fatalf("got %v", res.ErrorPct)
	}
}
