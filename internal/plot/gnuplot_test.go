package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFigureWriteTo(t *testing.T) {
	csma := NewDataset("Protocolo: CSMA")
	csma.Add(10, 210.5, 1.25)
	csma.Add(20, 1234567, 0.0001)
	wifi := NewDataset("Protocolo: WIFI")
	fig := &Figure{Title: "Mean delay", XLabel: "Nodes", YLabel: "Delay (ms)"}
	fig.AddDataset(csma)
	fig.AddDataset(wifi)

	var buf bytes.Buffer
	if _, err := fig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := `set title "Mean delay"
set xlabel "Nodes"
set ylabel "Delay (ms)"
plot '-'  title "Protocolo: CSMA" with yerrorlines, '-'  title "Protocolo: WIFI" with yerrorlines
10 210.5 1.25
20 1.23457e+06 0.0001
e
e
pause -1
`
	if got := buf.String(); got != want {
		t.Fatalf("unexpected script:\n%q\nwant:\n%q", got, want)
	}
}

func TestFigureWriteToTerminal(t *testing.T) {
	d := &Dataset{Style: Points}
	d.Add(1, 2, 0)
	fig := &Figure{Terminal: "png", Output: "out.png", Datasets: []*Dataset{d}}
	var buf bytes.Buffer
	if _, err := fig.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := "set terminal png\nset output \"out.png\"\nplot '-'  with points\n1 2 0\ne\npause -1\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestFigureWriteToEmpty(t *testing.T) {
	var buf bytes.Buffer
	if _, err := (&Figure{Title: "t"}).WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if want := "set title \"t\"\npause -1\n"; buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		2.2622:     "2.2622",
		100:        "100",
		1e-10:      "1e-10",
		0.1234567:  "0.123457",
		1000000:    "1e+06",
		123456:     "123456",
		-3.5:       "-3.5",
		0:          "0",
		0.00012345: "0.00012345",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v)=%s, want %s", in, got, want)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	var pages []Page
	for m := 1; m <= 3; m++ {
		p := Page{Modality: "mod", Index: m}
		for k := 0; k < 3; k++ {
			p.Figures = append(p.Figures, &Figure{Title: "x"})
		}
		pages = append(pages, p)
	}
	paths, err := WriteFiles(dir, "proyecto", pages)
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	want := []string{
		"proyecto_mod1-1.plt", "proyecto_mod1-2.plt", "proyecto_mod1-3.plt",
		"proyecto_mod2-1.plt", "proyecto_mod2-2.plt", "proyecto_mod2-3.plt",
		"proyecto_mod3-1.plt", "proyecto_mod3-2.plt", "proyecto_mod3-3.plt",
	}
	if len(paths) != len(want) {
		t.Fatalf("wrote %d files, want %d", len(paths), len(want))
	}
	for i, name := range want {
		if paths[i] != filepath.Join(dir, name) {
			t.Errorf("path[%d]=%s, want %s", i, paths[i], name)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("stat %s: %v", name, err)
		}
	}
}

func TestWriteFilesTerminalOutput(t *testing.T) {
	dir := t.TempDir()
	fig := &Figure{Terminal: "png"}
	if _, err := WriteFiles(dir, "p", []Page{{Index: 2, Figures: []*Figure{fig}}}); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	if fig.Output != "p_mod2-1.png" {
		t.Fatalf("output = %s", fig.Output)
	}
}
