package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"l3vpn-sweep/internal/results"
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

const defaultGreptimePort = 4001

// GreptimeDBWriter writes trials and points to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	trialTable string
	pointTable string
	timeout    time.Duration
	log        *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and writes
// into database. Empty table names fall back to the results defaults.
func NewGreptimeDBWriter(endpoint, database, trialTable, pointTable string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptimedb endpoint %q: invalid port", endpoint)
		}
		host, port = h, n
	}
	if database == "" {
		database = "public"
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	if trialTable == "" {
		trialTable = results.TrialTableName
	}
	if pointTable == "" {
		pointTable = results.PointTableName
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:     client,
		trialTable: trialTable,
		pointTable: pointTable,
		timeout:    10 * time.Second,
		log:        log,
	}, nil
}

// WriteTrial inserts a single trial row.
func (w *GreptimeDBWriter) WriteTrial(row results.TrialRow) error {
	return w.WriteTrials([]results.TrialRow{row})
}

// WriteTrials inserts multiple trial rows.
func (w *GreptimeDBWriter) WriteTrials(rows []results.TrialRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.trialTableFor(rows)
	if err != nil {
		return err
	}
	return w.write(tbl, len(rows))
}

// WritePoint inserts a single point row.
func (w *GreptimeDBWriter) WritePoint(row results.PointRow) error {
	return w.WritePoints([]results.PointRow{row})
}

// WritePoints inserts multiple point rows.
func (w *GreptimeDBWriter) WritePoints(rows []results.PointRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.pointTableFor(rows)
	if err != nil {
		return err
	}
	return w.write(tbl, len(rows))
}

func (w *GreptimeDBWriter) trialTableFor(rows []results.TrialRow) (*table.Table, error) {
	tbl, err := table.New(w.trialTable)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"run_id", "modality", "protocol"} {
		if err := tbl.AddTagColumn(tag, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTagColumn("nodes", types.INT64); err != nil {
		return nil, err
	}
	for _, f := range []string{"trial", "seed"} {
		if err := tbl.AddFieldColumn(f, types.INT64); err != nil {
			return nil, err
		}
	}
	for _, f := range []string{"error_pct", "delay_ms", "jitter_ms"} {
		if err := tbl.AddFieldColumn(f, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("failed", types.BOOLEAN); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("error", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("duration_ms", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, r.Modality, r.Protocol, int64(r.Nodes),
			int64(r.Trial), r.Seed,
			r.ErrorPct, r.DelayMs, r.JitterMs,
			r.Failed, r.Error, r.DurationMs,
			r.Timestamp,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) pointTableFor(rows []results.PointRow) (*table.Table, error) {
	tbl, err := table.New(w.pointTable)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"run_id", "modality", "protocol", "metric"} {
		if err := tbl.AddTagColumn(tag, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTagColumn("nodes", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("count", types.INT64); err != nil {
		return nil, err
	}
	for _, f := range []string{"mean", "variance", "half_width"} {
		if err := tbl.AddFieldColumn(f, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, r.Modality, r.Protocol, string(r.Metric), int64(r.Nodes),
			int64(r.Count), r.Mean, r.Variance, r.HalfWidth,
			r.Timestamp,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.logger().Error("greptimedb write failed", "rows", n, "err", err)
		return fmt.Errorf("greptimedb write: %w", err)
	}
	w.logger().Debug("greptimedb write", "rows", n)
	return nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}
