package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/cordon/internal/registry"
	"github.com/vovakirdan/cordon/internal/storage"
)

const (
	// historyLimit is how many deployments the browser loads.
	historyLimit = 100

	// historyChromeRows is the vertical space around the entry list:
	// title, filter line and help bar.
	historyChromeRows = 5
)

// allVariants is the filter value that shows every deployment.
const allVariants = "all"

// HistoryModel is the Bubble Tea model for browsing recorded
// deployments, filterable by variant.
type HistoryModel struct {
	store *storage.Store
	keys  HistoryKeyMap
	help  help.Model

	entries []storage.DeploymentEntry
	filters []string
	filter  int
	offset  int
	err     error

	width    int
	height   int
	back     bool
	quitting bool
}

// NewHistoryModel loads recent deployments from the store. A nil store
// renders as an error instead of failing.
func NewHistoryModel(store *storage.Store, width, height int) HistoryModel {
	filters := []string{allVariants}
	for _, v := range registry.List() {
		filters = append(filters, v.Name)
	}

	m := HistoryModel{
		store:   store,
		keys:    DefaultHistoryKeyMap(),
		help:    help.New(),
		filters: filters,
		width:   width,
		height:  height,
	}
	m.load()
	return m
}

func (m *HistoryModel) load() {
	if m.store == nil {
		m.err = errors.New("history unavailable: no database open")
		return
	}
	entries, err := m.store.RecentDeployments(historyLimit)
	m.entries = entries
	m.err = err
}

// filtered returns the entries matching the current variant filter.
func (m HistoryModel) filtered() []storage.DeploymentEntry {
	want := m.filters[m.filter]
	if want == allVariants {
		return m.entries
	}
	out := make([]storage.DeploymentEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Variant == want {
			out = append(out, e)
		}
	}
	return out
}

func (m HistoryModel) visibleRows() int {
	return max(m.height-historyChromeRows, 1)
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.offset > 0 {
				m.offset--
			}

		case key.Matches(msg, m.keys.Down):
			if m.offset < len(m.filtered())-m.visibleRows() {
				m.offset++
			}

		case key.Matches(msg, m.keys.PrevVariant):
			m.filter--
			if m.filter < 0 {
				m.filter = len(m.filters) - 1
			}
			m.offset = 0

		case key.Matches(msg, m.keys.NextVariant):
			m.filter = (m.filter + 1) % len(m.filters)
			m.offset = 0

		case key.Matches(msg, m.keys.Back):
			m.back = true

		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	}

	return m, nil
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	b.WriteString(titleStyle.Render(centerText("CORDON · DEPLOYMENT HISTORY", m.width)))
	b.WriteString("\n")

	entries := m.filtered()
	b.WriteString(fmt.Sprintf("%s %s  %s %d\n",
		labelStyle.Render("filter"),
		lipgloss.NewStyle().Bold(true).Render(m.filters[m.filter]),
		labelStyle.Render("deployments"), len(entries),
	))

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	} else if len(entries) == 0 {
		b.WriteString(labelStyle.Render("no deployments recorded yet"))
		b.WriteString("\n")
	} else {
		rows := m.visibleRows()
		for i := m.offset; i < len(entries) && i < m.offset+rows; i++ {
			b.WriteString(historyRow(entries[i]))
			b.WriteString("\n")
		}
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// historyRow formats one deployment entry as a list line.
func historyRow(e storage.DeploymentEntry) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	line := fmt.Sprintf("#%-4d %s  %-8s L%d  %d lanes  %s  +%d/-%d cops  %5.1fs",
		e.ID,
		e.CreatedAt.Format("Jan 02 15:04"),
		e.Variant,
		e.Level,
		e.LanesBlocked,
		outcomeStyle(e.Outcome).Render(fmt.Sprintf("%-8s", e.Outcome)),
		e.CopsReleased,
		e.CopsKilled,
		e.DurationSecs,
	)

	if len(e.Strips) > 0 {
		parts := make([]string, 0, len(e.Strips))
		for _, s := range e.Strips {
			parts = append(parts, fmt.Sprintf("%s %s", s.Location, s.FinalState))
		}
		line += labelStyle.Render("  strips: " + strings.Join(parts, ", "))
	}
	return line
}

// BackRequested reports whether the user asked to leave the browser.
func (m HistoryModel) BackRequested() bool {
	return m.back
}

// IsQuitting reports whether the user quit from the browser.
func (m HistoryModel) IsQuitting() bool {
	return m.quitting
}
