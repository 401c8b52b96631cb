// ColorStdoutWriter prints human-friendly, colorized sweep progress to STDOUT.
package sweep

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/results"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var modalityPalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

func colorWhite() string { return "\x1b[37m" }

// ColorStdoutWriter prints trial and point rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg            *config.SweepConfig
	out            io.Writer
	once           sync.Once
	modalityColors map[string]string
	colorIdx       int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SweepConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:            cfg,
		out:            os.Stdout,
		modalityColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getModalityColor(name string) string {
	if c, ok := w.modalityColors[name]; ok {
		return c
	}
	c := modalityPalette[w.colorIdx%len(modalityPalette)]
	w.modalityColors[name] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	c := w.cfg
	fmt.Fprintln(w.out, "Sweep Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "On/Off:\t%s / %s\n", c.Traffic.TOn, c.Traffic.TOff)
	fmt.Fprintf(tw, "Packet Size:\t%dB\n", c.Traffic.PacketSize)
	fmt.Fprintf(tw, "Data Rate:\t%s\n", c.Traffic.DataRate)
	fmt.Fprintf(tw, "CSMA:\t%s, %s, perror=%g\n", c.CSMA.DataRate, c.CSMA.Delay, c.CSMA.ErrorRate)
	fmt.Fprintf(tw, "Wi-Fi:\t%s\n", c.Wifi.DataRate)
	fmt.Fprintf(tw, "Site 2 Nodes:\t%d\n", c.Site2Nodes)
	fmt.Fprintf(tw, "Nodes:\t%d..%d step %d\n", c.Grid.MinNodes, c.Grid.MaxNodes, c.Grid.NodeStep)
	fmt.Fprintf(tw, "Trials:\t%d (total %d)\n", c.Grid.Trials, c.TotalTrials())
	tw.Flush()

	fmt.Fprintln(w.out, "\nModalities:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\tBER\tRate\tDelay\n")
	for _, m := range c.Modalities {
		col := w.getModalityColor(m.Name)
		fmt.Fprintf(tw, "%s%s%s\t%g\t%s\t%s\n", col, m.Name, colorReset, m.BitErrorRate, m.DataRate, m.Delay)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteTrial outputs a single trial row in colorized format.
func (w *ColorStdoutWriter) WriteTrial(row results.TrialRow) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%smodality=%s%s ", w.getModalityColor(row.Modality), row.Modality, colorReset)
	fmt.Fprintf(w.out, "%sprotocol=%s%s ", colorBlue, row.Protocol, colorReset)
	fmt.Fprintf(w.out, "%snodes=%d%s ", colorWhite(), row.Nodes, colorReset)
	fmt.Fprintf(w.out, "%strial=%d%s ", colorGray, row.Trial, colorReset)
	if row.Failed {
		fmt.Fprintf(w.out, "%sFAILED %s%s\n", colorRed, row.Error, colorReset)
		return nil
	}
	fmt.Fprintf(w.out, "%serr=%.3f%%%s ", colorYellow, row.ErrorPct, colorReset)
	fmt.Fprintf(w.out, "%sdelay=%.3fms%s ", colorGreen, row.DelayMs, colorReset)
	fmt.Fprintf(w.out, "%sjitter=%.3fms%s", colorCyan, row.JitterMs, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WritePoint prints an aggregated point.
func (w *ColorStdoutWriter) WritePoint(p results.PointRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%sPOINT%s %s%s%s %s%s%s nodes=%d %s%s=%.4f ± %.4f%s (n=%d)\n",
		colorMagenta, colorReset,
		w.getModalityColor(p.Modality), p.Modality, colorReset,
		colorBlue, p.Protocol, colorReset,
		p.Nodes,
		colorWhite(), p.Metric, p.Mean, p.HalfWidth, colorReset,
		p.Count)
	return nil
}
