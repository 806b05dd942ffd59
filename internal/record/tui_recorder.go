package record

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// sendMsg carries one record into the model.
type sendMsg struct{ Send }

// logMsg carries a free-form log line for the viewport.
type logMsg struct{ line string }

const maxLogLines = 500

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// TUIRecorder renders send records using a bubbletea TUI.
type TUIRecorder struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIRecorder starts a bubbletea program listing channels in order.
// Quitting the TUI interrupts the process so the sensor loop stops too.
func NewTUIRecorder(channels []string) *TUIRecorder {
	w := &TUIRecorder{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(channels), tea.WithAltScreen())
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

// Record implements Recorder.
func (w *TUIRecorder) Record(s Send) error {
	w.program.Send(sendMsg{s})
	return nil
}

// Logf adds a line to the log pane.
func (w *TUIRecorder) Logf(format string, args ...any) {
	w.program.Send(logMsg{line: fmt.Sprintf(format, args...)})
}

// Write adds each non-empty line of p to the log pane, so the recorder can
// back a slog handler while the alt screen is active.
func (w *TUIRecorder) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.program.Send(logMsg{line: line})
		}
	}
	return len(p), nil
}

// Close stops the program and waits for it to exit.
func (w *TUIRecorder) Close() error {
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
	channels []string
	last     map[string]Send
	sent     map[string]int
	table    table.Model
	vp       viewport.Model
	logs     []string
	wrap     bool
	width    int
	height   int
}

func newTUIModel(channels []string) tuiModel {
	cols := []table.Column{
		{Title: "Channel", Width: 18},
		{Title: "Sends", Width: 6},
		{Title: "Result", Width: 8},
		{Title: "Count", Width: 8},
		{Title: "Took", Width: 8},
		{Title: "Next", Width: 8},
		{Title: "At", Width: 10},
	}
	m := tuiModel{
		channels: append([]string(nil), channels...),
		last:     make(map[string]Send),
		sent:     make(map[string]int),
		table:    table.New(table.WithColumns(cols), table.WithHeight(len(channels)+1)),
		vp:       viewport.New(0, 0),
	}
	m.refreshTable()
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.resize()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		}
	case sendMsg:
		if !slices.Contains(m.channels, msg.Channel) {
			m.channels = append(m.channels, msg.Channel)
			m.table.SetHeight(len(m.channels) + 1)
			m.resize()
		}
		m.last[msg.Channel] = msg.Send
		m.sent[msg.Channel]++
		m.refreshTable()
		m.appendLog(formatSendLine(msg.Send))
	case logMsg:
		m.appendLog(msg.line)
	}
	return m, nil
}

func (m *tuiModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

func (m *tuiModel) resize() {
	h := m.height - lipgloss.Height(m.table.View()) - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	m.vp.GotoBottom()
}

func (m *tuiModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.channels))
	for _, ch := range m.channels {
		s, ok := m.last[ch]
		if !ok {
			rows = append(rows, table.Row{ch, "0", "-", "-", "-", "-", "-"})
			continue
		}
		result := "ok"
		if !s.OK {
			result = "rejected"
		}
		rows = append(rows, table.Row{
			ch,
			fmt.Sprintf("%d", m.sent[ch]),
			result,
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%.2fs", s.Elapsed.Seconds()),
			fmt.Sprintf("%.2fs", s.NextDelay.Seconds()),
			s.Timestamp.Format("15:04:05"),
		})
	}
	m.table.SetRows(rows)
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			l = wordwrap.String(l, m.vp.Width)
		}
		lines = append(lines, l)
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoBottom()
}

func (m tuiModel) View() string {
	divider := dimStyle.Render(strings.Repeat("─", m.width))
	sections := []string{
		headerStyle.Render("ThingSpeak uploads"),
		m.table.View(),
		divider,
		m.vp.View(),
		dimStyle.Render("q quit • w wrap"),
	}
	return strings.Join(sections, "\n")
}

func formatSendLine(s Send) string {
	status := okStyle.Render("ok")
	if !s.OK {
		status = failStyle.Render("rejected")
	}
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var vals strings.Builder
	for i, k := range keys {
		if i > 0 {
			vals.WriteByte(' ')
		}
		fmt.Fprintf(&vals, "%s=%v", k, s.Values[k])
	}
	return fmt.Sprintf("%s %s %s #%d took %.2fs next in %.2fs %s",
		dimStyle.Render(s.Timestamp.Format(time.RFC3339)), s.Channel, status,
		s.Count, s.Elapsed.Seconds(), s.NextDelay.Seconds(), vals.String())
}
