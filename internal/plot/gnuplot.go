// Package plot writes Gnuplot scripts with inline data blocks.
package plot

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
)

//go:embed templates/script.plt.tmpl
var templateFS embed.FS

var scriptTemplate = template.Must(
	template.New("script.plt.tmpl").
		Funcs(template.FuncMap{"num": FormatNumber}).
		ParseFS(templateFS, "templates/script.plt.tmpl"),
)

// Style is the Gnuplot drawing style of a dataset.
type Style string

const (
	Lines       Style = "lines"
	Points      Style = "points"
	LinesPoints Style = "linespoints"
)

// ErrorBars selects which axis carries error bars.
type ErrorBars int

const (
	NoErrorBars ErrorBars = iota
	YErrorBars
)

// Point is a sample with its y error.
type Point struct {
	X, Y, DY float64
}

// Dataset is one curve of a figure.
type Dataset struct {
	Title     string
	Style     Style
	ErrorBars ErrorBars
	Points    []Point
}

// NewDataset returns a linespoints dataset with y error bars.
func NewDataset(title string) *Dataset {
	return &Dataset{Title: title, Style: LinesPoints, ErrorBars: YErrorBars}
}

// Add appends a point.
func (d *Dataset) Add(x, y, dy float64) {
	d.Points = append(d.Points, Point{X: x, Y: y, DY: dy})
}

// With returns the "with" clause of the plot command.
func (d *Dataset) With() string {
	if d.ErrorBars == YErrorBars {
		switch d.Style {
		case Lines, LinesPoints:
			return "yerrorlines"
		case Points:
			return "yerrorbars"
		}
	}
	return string(d.Style)
}

// Figure is a single Gnuplot script.
type Figure struct {
	Title    string
	XLabel   string
	YLabel   string
	Terminal string
	Output   string
	Datasets []*Dataset
}

// AddDataset appends d to the figure.
func (f *Figure) AddDataset(d *Dataset) { f.Datasets = append(f.Datasets, d) }

// WriteTo renders the script to w.
func (f *Figure) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, f); err != nil {
		return 0, fmt.Errorf("render %q: %w", f.Title, err)
	}
	return buf.WriteTo(w)
}

// FormatNumber prints v with six significant digits, dropping trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Page groups the figures of one modality in metric order.
type Page struct {
	Modality string
	Index    int // 1-based, used in file names
	Figures  []*Figure
}

// FileName returns <prefix>_mod<modality>-<figure>.plt.
func FileName(prefix string, modality, figure int) string {
	return fmt.Sprintf("%s_mod%d-%d.plt", prefix, modality, figure)
}

// WriteFiles writes every figure of pages into dir and returns the paths written.
// When a figure has a terminal but no output, the output defaults to the script
// name with the terminal as extension.
func WriteFiles(dir, prefix string, pages []Page) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range pages {
		for i, fig := range p.Figures {
			name := FileName(prefix, p.Index, i+1)
			if fig.Terminal != "" && fig.Output == "" {
				fig.Output = name[:len(name)-len(".plt")] + "." + fig.Terminal
			}
			path := filepath.Join(dir, name)
			if err := writeFile(path, fig); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func writeFile(path string, fig *Figure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := fig.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
