package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"l3vpn-sweep/internal/logging"
	"l3vpn-sweep/internal/scenario"
)

const stderrTail = 2048

// Exec runs an external simulator program per scenario. The program receives
// the scenario as --key=value arguments and must print a JSON object with
// error_pct, delay_ms and jitter_ms on stdout; the last such line wins.
type Exec struct {
	Commands map[scenario.Protocol][]string
	Timeout  time.Duration
	Dir      string
	Logger   *slog.Logger
}

// NewExec creates an Exec backend. A protocol without a command fails at run time.
func NewExec(csmaCmd, wifiCmd []string, timeout time.Duration) *Exec {
	cmds := make(map[scenario.Protocol][]string)
	if len(csmaCmd) > 0 {
		cmds[scenario.CSMA] = csmaCmd
	}
	if len(wifiCmd) > 0 {
		cmds[scenario.WiFi] = wifiCmd
	}
	return &Exec{Commands: cmds, Timeout: timeout}
}

// Run executes the command for sc.Protocol.
func (e *Exec) Run(ctx context.Context, sc scenario.Scenario) (Result, error) {
	base, ok := e.Commands[sc.Protocol]
	if !ok || len(base) == 0 {
		return Result{}, &TrialError{Key: sc.Key(), Err: fmt.Errorf("no simulator command configured for %s", sc.Protocol)}
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	log := e.Logger
	if log == nil {
		log = logging.FromContext(ctx)
	}

	args := append(append([]string{}, base[1:]...), sc.Args()...)
	cmd := exec.CommandContext(ctx, base[0], args...)
	cmd.Dir = e.Dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Log(ctx, logging.LevelTrace, "exec simulator", "cmd", base[0], "args", strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (after %s)", ctx.Err(), time.Since(start).Round(time.Millisecond))
		} else if tail := tailString(stderr.String(), stderrTail); tail != "" {
			err = fmt.Errorf("%w: %s", err, tail)
		}
		return Result{}, &TrialError{Key: sc.Key(), Err: err}
	}
	res, err := ParseOutput(stdout.Bytes())
	if err != nil {
		return Result{}, &TrialError{Key: sc.Key(), Err: err}
	}
	log.Log(ctx, logging.LevelTrace, "simulator output", "stdout", tailString(stdout.String(), stderrTail))
	return res, nil
}

// ParseOutput extracts the last JSON result object from simulator stdout.
func ParseOutput(out []byte) (Result, error) {
	lines := bytes.Split(out, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var raw struct {
			ErrorPct *float64 `json:"error_pct"`
			DelayMs  *float64 `json:"delay_ms"`
			JitterMs *float64 `json:"jitter_ms"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			continue
		}
		if raw.ErrorPct == nil || raw.DelayMs == nil || raw.JitterMs == nil {
			return Result{}, errors.New("simulator result is missing error_pct, delay_ms or jitter_ms")
		}
		return Result{ErrorPct: *raw.ErrorPct, DelayMs: *raw.DelayMs, JitterMs: *raw.JitterMs}, nil
	}
	return Result{}, errors.New("simulator printed no JSON result")
}

func tailString(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
