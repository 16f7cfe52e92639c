package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/prototypeforge/dimensiondoor/internal/tunnel"
)

const maxTrafficEntries = 200

// Model is the root Bubble Tea model for the DimensionDoor status display.
type Model struct {
	client *tunnel.Client

	status      tunnel.Status
	url         string
	lastError   string
	openStreams int

	traffic   []string
	spinner   spinner.Model
	trafficVP viewport.Model
	ready     bool
	quitting  bool
	width     int
	height    int
}

// NewModel creates a TUI model bound to a running tunnel client.
func NewModel(client *tunnel.Client) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	return Model{
		client:  client,
		status:  tunnel.StatusInit,
		traffic: make([]string, 0, maxTrafficEntries),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenForEvents(m.client))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.client.Stop()
			return m, tea.Quit
		case "b":
			if m.status == tunnel.StatusRunning && m.url != "" {
				return m, openBrowser(m.url)
			}
		}

	case openBrowserMsg:
		// nothing to do; a future iteration could surface cmd.err

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncLayout()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tunnelEventMsg:
		ev := msg.event
		m.status = ev.Status
		if ev.URL != "" {
			m.url = ev.URL
		}
		if ev.Err != nil {
			m.lastError = ev.Err.Error()
		}
		if ev.Traffic != nil {
			line := RenderTrafficLine(ev.Traffic.Method, ev.Traffic.Path, ev.Traffic.Status, ev.Traffic.Duration, ev.Traffic.Timestamp)
			m.traffic = append(m.traffic, line)
			if len(m.traffic) > maxTrafficEntries {
				m.traffic = m.traffic[len(m.traffic)-maxTrafficEntries:]
			}
			if m.ready {
				m.updateViewportContent()
				m.trafficVP.GotoBottom()
			}
		}
		if m.status == tunnel.StatusTerminated {
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, listenForEvents(m.client))
	}

	if m.ready {
		var vpCmd tea.Cmd
		m.trafficVP, vpCmd = m.trafficVP.Update(msg)
		cmds = append(cmds, vpCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) syncLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	const headerLines = 4
	const footerLines = 1
	vpHeight := m.height - headerLines - footerLines
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.trafficVP = viewport.New(viewport.WithWidth(m.width), viewport.WithHeight(vpHeight))
		m.trafficVP.MouseWheelEnabled = true
		m.updateViewportContent()
		m.ready = true
	} else {
		m.trafficVP.SetWidth(m.width)
		m.trafficVP.SetHeight(vpHeight)
	}
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	content := strings.Join(m.traffic, "\n")
	if len(m.traffic) == 0 {
		content = dimStyle.Render(" waiting for requests...")
	}
	m.trafficVP.SetContent(content)
}

func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}

	header := m.renderHeader()
	var body string
	if m.ready {
		body = m.trafficVP.View()
	} else {
		body = dimStyle.Render(" initializing...")
	}
	footer := dimStyle.Render("  q quit | b open browser")

	content := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	v := tea.NewView(content)
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	return v
}

func (m Model) renderHeader() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n  %s  %s\n", titleStyle.Render("dimensiondoor"), m.spinner.View()))
	b.WriteString(fmt.Sprintf("  %s      %s\n", labelStyle.Render("Status"), StyledTunnelStatus(string(m.status))))
	if m.url != "" {
		b.WriteString(fmt.Sprintf("  %s         %s\n", labelStyle.Render("URL"), urlStyle.Render(m.url)))
	}
	if m.lastError != "" {
		b.WriteString(fmt.Sprintf("  %s       %s\n", labelStyle.Render("Last error"), errorStyle.Render(m.lastError)))
	}
	return b.String()
}
