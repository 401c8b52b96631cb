package results

import (
	"strings"
	"testing"
)

func TestMetricIndex(t *testing.T) {
	cases := map[Metric]int{MetricErrorPct: 1, MetricDelay: 2, MetricJitter: 3, Metric("x"): 0}
	for m, want := range cases {
		if got := m.Index(); got != want {
			t.Errorf("%s.Index()=%d, want %d", m, got, want)
		}
	}
}

func TestTrialRowValue(t *testing.T) {
	r := TrialRow{ErrorPct: 1.5, DelayMs: 210, JitterMs: 3}
	if r.Value(MetricErrorPct) != 1.5 || r.Value(MetricDelay) != 210 || r.Value(MetricJitter) != 3 {
		t.Fatalf("unexpected values from %+v", r)
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric("delay_ms"); err != nil || m != MetricDelay {
		t.Fatalf("ParseMetric(delay_ms)=%v,%v", m, err)
	}
	if _, err := ParseMetric("throughput"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTableNames(t *testing.T) {
	orig := TrialTableName
	TrialTableName = "custom"
	defer func() { TrialTableName = orig }()
	if (TrialRow{}).TableName() != "custom" {
		t.Errorf("expected custom table name, got %s", (TrialRow{}).TableName())
	}
	if (PointRow{}).TableName() != PointTableName {
		t.Errorf("unexpected point table name")
	}
}

func TestReadTrials(t *testing.T) {
	in := strings.NewReader(`{"modality":"mod1","protocol":"csma","nodes":10,"trial":0,"delay_ms":200}
{"modality":"mod1","protocol":"csma","nodes":10,"trial":1,"failed":true,"error":"boom"}
`)
	rows, err := ReadTrials(in)
	if err != nil {
		t.Fatalf("ReadTrials: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DelayMs != 200 || !rows[1].Failed || rows[1].Error != "boom" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestReadTrialsMalformed(t *testing.T) {
	_, err := ReadTrials(strings.NewReader("{\"nodes\":1}\n{not json"))
	if err == nil || !strings.Contains(err.Error(), "record 2") {
		t.Fatalf("expected record 2 error, got %v", err)
	}
}

func TestFigureLabels(t *testing.T) {
	cases := []struct {
		m      Metric
		title  string
		ylabel string
	}{
		{MetricErrorPct, "Porcentaje de paquetes erróneos", "Porcentaje de Paquetes erróneos (%)"},
		{MetricDelay, "Retardo medio", "Retardo medio (ms)"},
		{MetricJitter, "Jitter medio", "Jitter (ms)"},
	}
	for _, tc := range cases {
		if got := tc.m.Title(); got != tc.title {
			t.Errorf("%s title = %q, want %q", tc.m, got, tc.title)
		}
		if got := tc.m.YLabel(); got != tc.ylabel {
			t.Errorf("%s ylabel = %q, want %q", tc.m, got, tc.ylabel)
		}
	}
	if XLabel != "Número de nodos en la sede origen" {
		t.Errorf("unexpected x label %q", XLabel)
	}
}
