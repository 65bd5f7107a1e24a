package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"netattack-sim/internal/scenario"
	"netattack-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a step line for the viewport.
type logMsg struct{ line string }

// snapshotMsg carries the live network state.
type snapshotMsg struct{ Snapshot }

// episodeMsg carries a finished episode.
type episodeMsg struct{ telemetry.EpisodeRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

const (
	maxLogLines     = 1000
	maxEpisodeLines = 5
)

// TUIWriter renders traces using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(def *scenario.Definition) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(def), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		// Quitting the TUI stops the run like Ctrl-C would.
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteStep implements StepWriter.
func (w *TUIWriter) WriteStep(row telemetry.StepRow) error {
	w.program.Send(logMsg{line: formatStep(row)})
	return nil
}

// WriteEpisode implements EpisodeWriter.
func (w *TUIWriter) WriteEpisode(row telemetry.EpisodeRow) error {
	w.program.Send(episodeMsg{row})
	return nil
}

// WriteSnapshot refreshes the host table.
func (w *TUIWriter) WriteSnapshot(s Snapshot) error {
	w.program.Send(snapshotMsg{s})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
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
	def          *scenario.Definition
	table        table.Model
	vp           viewport.Model
	logs         []string
	episodes     []string
	snap         Snapshot
	admin        bool
	wrap         bool
	autoscroll   bool
	help         bool
	header       string
	headerHeight int
	height       int
}

var hostColumns = []table.Column{
	{Title: "Host", Width: 9},
	{Title: "OS", Width: 10},
	{Title: "Disc", Width: 5},
	{Title: "Reach", Width: 5},
	{Title: "Access", Width: 6},
	{Title: "Value", Width: 6},
}

func newTUIModel(def *scenario.Definition) tuiModel {
	m := tuiModel{
		def:        def,
		table:      table.New(table.WithColumns(hostColumns)),
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
	if def != nil {
		m.snap.Scenario = def.Name
		m.snap.StepLimit = def.StepLimit
	}
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.vp.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.height = msg.Height
		m.refreshHeader()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
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
		case "h", "?":
			m.help = true
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case snapshotMsg:
		m.snap = msg.Snapshot
		m.table.SetRows(hostRows(msg.Snapshot))
		m.refreshHeader()
	case episodeMsg:
		m.episodes = append(m.episodes, formatEpisode(msg.EpisodeRow))
		if len(m.episodes) > maxEpisodeLines {
			m.episodes = m.episodes[len(m.episodes)-maxEpisodeLines:]
		}
		m.updateViewportHeight()
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func hostRows(s Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(s.Hosts))
	for _, h := range s.Hosts {
		addr := h.Address
		if h.Sensitive {
			addr += "*"
		}
		rows = append(rows, table.Row{
			addr,
			h.OS,
			yesNo(h.Discovered),
			yesNo(h.Reachable),
			h.Access,
			fmt.Sprintf("%.0f", h.Value),
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func (m *tuiModel) refreshHeader() {
	m.table.SetHeight(len(m.table.Rows()) + 1)
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
	m.updateViewportHeight()
}

func (m *tuiModel) updateViewportHeight() {
	h := m.height - m.headerHeight - lipgloss.Height(m.renderBottom()) - len(m.episodes) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider, m.vp.View(), divider}
	if len(m.episodes) > 0 {
		sections = append(sections, strings.Join(m.episodes, "\n"))
	}
	sections = append(sections, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("Network")
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	status := colorYellow + "running" + colorReset
	switch {
	case m.snap.GoalReached:
		status = colorGreen + "goal reached" + colorReset
	case m.snap.StepLimitReached:
		status = colorRed + "step limit" + colorReset
	}
	state := fmt.Sprintf("%sEPISODE%s %s %sstep=%d/%d%s %sreward=%.1f%s %s",
		colorBlue, colorReset,
		m.snap.Scenario,
		colorCyan, m.snap.Step, m.snap.StepLimit, colorReset,
		colorMagenta, m.snap.TotalReward, colorReset,
		status)
	return fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | Help h", state, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for the step log",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"Hosts marked * are sensitive.",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
