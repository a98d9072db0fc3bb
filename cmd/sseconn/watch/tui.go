package watchcmder

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/pulsegate/sseconn/pkg/sse"
	"github.com/pulsegate/sseconn/pkg/sseclient"
	"github.com/pulsegate/sseconn/pkg/utils"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

// maxRows bounds the in-memory event history shown in the view.
const maxRows = 256

type eventMsg struct {
	event *sse.Event
}

type stateMsg struct {
	state sseclient.State
}

type failureMsg struct {
	err error
}

type eventRow struct {
	at    time.Time
	event *sse.Event
}

var (
	watchTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	watchMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	watchDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	watchTypeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	watchDataStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	watchStateOKStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	watchStateWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	watchStateFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type watchKeyMap struct {
	Quit key.Binding
}

func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

func defaultKeyMap() watchKeyMap {
	return watchKeyMap{
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type watchModel struct {
	url    string
	state  sseclient.State
	rows   []eventRow
	err    error
	width  int
	height int
	keys   watchKeyMap
	help   help.Model
}

func newWatchModel(url string) watchModel {
	return watchModel{
		url:   url,
		state: sseclient.StateIdle,
		keys:  defaultKeyMap(),
		help:  help.New(),
	}
}

func (m watchModel) Init() bubbletea.Cmd {
	return nil
}

func (m watchModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, bubbletea.Quit
		}
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case stateMsg:
		m.state = msg.state
	case eventMsg:
		m.rows = append(m.rows, eventRow{at: time.Now(), event: msg.event})
		if len(m.rows) > maxRows {
			m.rows = m.rows[len(m.rows)-maxRows:]
		}
	case failureMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(watchTitleStyle.Render("sseconn watch"))
	b.WriteString("  ")
	b.WriteString(watchMutedStyle.Render(m.url))
	b.WriteString("  ")
	b.WriteString(m.stateBadge())
	b.WriteString("\n")
	b.WriteString(watchDividerStyle.Render(strings.Repeat("─", max(m.width, 20))))
	b.WriteString("\n")

	visible := m.visibleRows()
	for _, row := range visible {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(watchStateFailStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m watchModel) stateBadge() string {
	label := m.state.String()
	switch m.state {
	case sseclient.StateConnected:
		return watchStateOKStyle.Render(label)
	case sseclient.StateFailed:
		return watchStateFailStyle.Render(label)
	default:
		return watchStateWarnStyle.Render(label)
	}
}

// visibleRows returns the newest rows that fit the terminal, keeping room
// for the header, divider, help line and a possible error line.
func (m watchModel) visibleRows() []eventRow {
	budget := m.height - 4
	if budget <= 0 || len(m.rows) <= budget {
		return m.rows
	}
	return m.rows[len(m.rows)-budget:]
}

func (m watchModel) renderRow(row eventRow) string {
	typ := row.event.Type
	if typ == "" {
		typ = "message"
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	// Timestamp and type prefix take their share of the row.
	data := utils.Truncate(row.event.Data, max(width-len(typ)-14, 16))

	return fmt.Sprintf("%s %s %s",
		watchMutedStyle.Render(row.at.Format("15:04:05")),
		watchTypeStyle.Render(typ),
		watchDataStyle.Render(data),
	)
}
