package sweep

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"l3vpn-sweep/internal/config"
	"l3vpn-sweep/internal/plot"
	"l3vpn-sweep/internal/results"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// trialMsg carries a finished trial and its log line.
type trialMsg struct {
	line string
	row  results.TrialRow
}

// pointMsg carries an aggregated point.
type pointMsg struct{ results.PointRow }

// adminMsg reports the status server address, empty when disabled.
type adminMsg struct{ addr string }

const maxTableHeightPct = 0.4

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// TUIWriter renders sweep progress using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
// Quitting the UI interrupts the process so the sweep stops too.
func NewTUIWriter(cfg *config.SweepConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteTrial implements TrialWriter.
func (w *TUIWriter) WriteTrial(row results.TrialRow) error {
	line := fmt.Sprintf("%s[%s]%s %s%s%s %s%s%s nodes=%d trial=%d ",
		colorGray, row.Timestamp.Format(time.TimeOnly), colorReset,
		colorBlue, row.Modality, colorReset,
		colorCyan, row.Protocol, colorReset,
		row.Nodes, row.Trial)
	if row.Failed {
		line += fmt.Sprintf("%sFAILED%s %s", colorRed, colorReset, row.Error)
	} else {
		line += fmt.Sprintf("err=%.3f%% delay=%.3fms jitter=%.3fms", row.ErrorPct, row.DelayMs, row.JitterMs)
	}
	w.program.Send(trialMsg{line: line, row: row})
	return nil
}

// WritePoint implements PointWriter.
func (w *TUIWriter) WritePoint(row results.PointRow) error {
	w.program.Send(pointMsg{row})
	return nil
}

// SetAdminStatus shows the status server address in the header.
func (w *TUIWriter) SetAdminStatus(addr string) {
	w.program.Send(adminMsg{addr: addr})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.SweepConfig
	total      int
	done       int
	failed     int
	current    string
	admin      string
	bar        progress.Model
	table      table.Model
	vp         viewport.Model
	logs       []string
	rows       []table.Row
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(cfg *config.SweepConfig) tuiModel {
	cols := []table.Column{
		{Title: "Modality", Width: 10},
		{Title: "Protocol", Width: 8},
		{Title: "Metric", Width: 10},
		{Title: "Nodes", Width: 6},
		{Title: "Mean", Width: 12},
		{Title: "±", Width: 12},
		{Title: "n", Width: 4},
	}
	total := 0
	if cfg != nil {
		total = cfg.TotalTrials()
	}
	return tuiModel{
		cfg:        cfg,
		total:      total,
		bar:        progress.New(progress.WithDefaultGradient()),
		table:      table.New(table.WithColumns(cols), table.WithHeight(1)),
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 20
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateHeights()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	case trialMsg:
		m.done++
		if msg.row.Failed {
			m.failed++
		}
		m.current = fmt.Sprintf("%s / %s / %d nodes", msg.row.Modality, msg.row.Protocol, msg.row.Nodes)
		m.logs = append(m.logs, msg.line)
		m.refreshViewport()
	case pointMsg:
		m.rows = append(m.rows, table.Row{
			msg.Modality,
			msg.Protocol,
			string(msg.Metric),
			fmt.Sprintf("%d", msg.Nodes),
			plot.FormatNumber(msg.Mean),
			plot.FormatNumber(msg.HalfWidth),
			fmt.Sprintf("%d", msg.Count),
		})
		m.table.SetRows(m.rows)
		m.updateHeights()
		m.table.GotoBottom()
	case adminMsg:
		m.admin = msg.addr
	}
	return m, nil
}

func (m *tuiModel) updateHeights() {
	maxTable := int(float64(m.height) * maxTableHeightPct)
	if maxTable < 2 {
		maxTable = 2
	}
	th := len(m.rows) + 1
	if th > maxTable {
		th = maxTable
	}
	m.table.SetHeight(th)
	h := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.table.View()) - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	p := float64(m.done) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

func (m tuiModel) renderHeader() string {
	status := fmt.Sprintf("%d/%d trials", m.done, m.total)
	if m.failed > 0 {
		status += " " + failedStyle.Render(fmt.Sprintf("(%d failed)", m.failed))
	}
	head := titleStyle.Render("L3VPN sweep") + "  " + status
	if m.current != "" {
		head += "  " + mutedStyle.Render(m.current)
	}
	if m.admin != "" {
		head += "  " + mutedStyle.Render("admin "+m.admin)
	}
	return head + "\n" + m.bar.ViewAs(m.percent())
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	help := mutedStyle.Render("q quit • w wrap • s autoscroll • ↑/↓ scroll")
	return strings.Join([]string{
		m.renderHeader(),
		divider,
		m.table.View(),
		divider,
		m.vp.View(),
		help,
	}, "\n")
}
