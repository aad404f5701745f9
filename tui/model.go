// Package tui is a terminal browser for the tracks of a Standard MIDI File.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-smf/smf"
	"go-smf/tempo"
	"go-smf/theme"
)

// row is one event with its absolute time.
type row struct {
	tick  int64
	event smf.Event
}

type Model struct {
	Name  string
	File  *smf.File
	Map   *tempo.Map
	Theme *theme.Theme

	tracks   [][]row
	kind     tempo.SpanKind
	track    int
	cursor   int
	offset   int
	height   int
	quitting bool
}

var timeFormats = []tempo.SpanKind{
	tempo.KindBarBeatTicks,
	tempo.KindTicks,
	tempo.KindMetric,
	tempo.KindMusical,
	tempo.KindBarBeatFraction,
}

// NewModel builds a browser for f. kind selects the initial time column.
func NewModel(name string, f *smf.File, th *theme.Theme, kind tempo.SpanKind) (Model, error) {
	m, err := tempo.Build(f)
	if err != nil {
		return Model{}, err
	}

	model := Model{
		Name:   name,
		File:   f,
		Map:    m,
		Theme:  th,
		kind:   kind,
		height: 20,
	}
	for _, t := range f.Tracks() {
		var rows []row
		var tick int64
		for _, ev := range t.Events {
			tick += int64(ev.Delta)
			rows = append(rows, row{tick: tick, event: ev})
		}
		model.tracks = append(model.tracks, rows)
	}
	return model, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header, tabs, blank lines and help
		m.height = max(1, msg.Height-6)
		m.scroll()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "tab", "right", "l":
			m.selectTrack(m.track + 1)

		case "shift+tab", "left", "h":
			m.selectTrack(m.track - 1)

		case "down", "j":
			m.move(1)

		case "up", "k":
			m.move(-1)

		case "pgdown", " ":
			m.move(m.height)

		case "pgup":
			m.move(-m.height)

		case "g", "home":
			m.move(-len(m.rows()))

		case "G", "end":
			m.move(len(m.rows()))

		case "t":
			m.kind = nextFormat(m.kind)
		}
	}

	return m, nil
}

func (m *Model) rows() []row {
	if m.track >= len(m.tracks) {
		return nil
	}
	return m.tracks[m.track]
}

func (m *Model) selectTrack(i int) {
	n := len(m.tracks)
	if n == 0 {
		return
	}
	m.track = (i%n + n) % n
	m.cursor, m.offset = 0, 0
}

func (m *Model) move(delta int) {
	n := len(m.rows())
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.scroll()
}

func (m *Model) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func nextFormat(k tempo.SpanKind) tempo.SpanKind {
	for i, f := range timeFormats {
		if f == k {
			return timeFormats[(i+1)%len(timeFormats)]
		}
	}
	return timeFormats[0]
}

// timeLabel formats tick in the selected representation, falling back to
// ticks where the division has none (musical time under SMPTE).
func (m Model) timeLabel(tick int64) string {
	s, err := m.Map.Convert(tempo.Ticks(tick), m.kind)
	if err != nil {
		return tempo.Ticks(tick).String()
	}
	return s.String()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	tabStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted()).Padding(0, 1)
	activeTab := lipgloss.NewStyle().Foreground(m.Theme.BG()).Background(m.Theme.Accent()).Padding(0, 1)
	cursorStyle := lipgloss.NewStyle().Foreground(m.Theme.Cursor()).Bold(true)

	header := headerStyle.Render(fmt.Sprintf("%s  %s  %s  %d tracks  time:%s",
		m.Name, m.File.Format, m.File.Division, len(m.tracks), m.kind))

	var tabs []string
	for i := range m.tracks {
		style := tabStyle
		if i == m.track {
			style = activeTab
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%d", i+1)))
	}

	var body strings.Builder
	rows := m.rows()
	end := min(m.offset+m.height, len(rows))
	for i := m.offset; i < end; i++ {
		r := rows[i]
		pointer := " "
		if i == m.cursor {
			pointer = cursorStyle.Render(string(m.Theme.Symbols.Cursor))
		}
		kind := lipgloss.NewStyle().Foreground(m.Theme.Kind(r.event.Message.Kind()))
		body.WriteString(fmt.Sprintf("%s %12s %6d %c %s\n",
			pointer,
			m.timeLabel(r.tick),
			r.event.Delta,
			m.Theme.Marker(r.event.Message),
			kind.Render(r.event.Message.String())))
	}
	if len(rows) == 0 {
		body.WriteString(dimStyle.Render("no events") + "\n")
	}

	help := dimStyle.Render(fmt.Sprintf("%d/%d  tab/h/l:track  j/k:move  g/G:ends  t:time  q:quit",
		min(m.cursor+1, len(rows)), len(rows)))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	out.WriteString("\n\n")
	out.WriteString(body.String())
	out.WriteString("\n")
	out.WriteString(help)

	return out.String()
}
