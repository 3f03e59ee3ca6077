package tui

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/dispatch"
	"github.com/vovakirdan/cordon/internal/roadblock"
	"github.com/vovakirdan/cordon/internal/world"
)

const (
	// monitorFPS is how often the monitor redraws while the pursuit
	// runs. The simulation has its own tick rate; this only paces the
	// terminal.
	monitorFPS = 15

	// feedLines is how many event lines the feed pane shows.
	feedLines = 6

	// monitorChromeRows is the vertical space around the monitor canvas:
	// title, status, feed pane and help bar.
	monitorChromeRows = feedLines + 5
)

// simDoneMsg signals that the simulation goroutine returned.
type simDoneMsg struct{}

// eventFeed collects engine events and the finished record. It is
// written from the simulation goroutine and read by the model, so all
// access goes through the mutex.
type eventFeed struct {
	mu       sync.Mutex
	lines    []string
	record   *dispatch.Record
	finished bool
}

func (f *eventFeed) observe(evt roadblock.Event) {
	line := describeEvent(evt)
	if line == "" {
		return
	}
	f.mu.Lock()
	f.lines = append(f.lines, line)
	f.mu.Unlock()
}

func (f *eventFeed) complete(rec dispatch.Record) {
	f.mu.Lock()
	f.record = &rec
	f.finished = true
	f.mu.Unlock()
}

func (f *eventFeed) snapshot() ([]string, *dispatch.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines
	if len(lines) > feedLines {
		lines = lines[len(lines)-feedLines:]
	}
	return append([]string(nil), lines...), f.record, f.finished
}

// describeEvent turns an engine event into a feed line.
func describeEvent(evt roadblock.Event) string {
	switch e := evt.(type) {
	case roadblock.StateChangedEvent:
		return fmt.Sprintf("roadblock → %s", e.State)
	case roadblock.CopKilledEvent:
		return fmt.Sprintf("cop down: %v", e.Cop)
	case roadblock.CopsJoiningPursuitEvent:
		return fmt.Sprintf("%d cops joining the pursuit", len(e.Cops))
	case roadblock.StripStateChangedEvent:
		return fmt.Sprintf("strip %s → %s", e.Location, e.State)
	default:
		return ""
	}
}

// MonitorModel is the Bubble Tea model for one live deployment: the
// dispatch simulation runs in its own goroutine while the model draws
// the scene and streams engine events into a feed pane.
type MonitorModel struct {
	keys   MonitorKeyMap
	help   help.Model
	canvas *Canvas

	w    *world.SimWorld
	sim  *dispatch.Simulation
	feed *eventFeed

	width    int
	height   int
	back     bool
	quitting bool
}

// NewMonitorModel stages a deployment from the given parameters.
// Nothing runs until Init.
func NewMonitorModel(cfg config.Config, logger *log.Logger, saver dispatch.Saver, p dispatch.Params, seed int64, width, height int) (MonitorModel, error) {
	w := world.NewSim()
	feed := &eventFeed{}

	sim, err := dispatch.NewSimulation(dispatch.Deps{
		World:   w,
		Config:  cfg,
		Logger:  logger,
		Rand:    rand.New(rand.NewSource(seed)),
		Saver:   saver,
		OnEvent: feed.observe,
	}, p)
	if err != nil {
		return MonitorModel{}, err
	}

	return MonitorModel{
		keys:   DefaultMonitorKeyMap(),
		help:   help.New(),
		canvas: NewCanvas(width, max(height-monitorChromeRows, 1)),
		w:      w,
		sim:    sim,
		feed:   feed,
		width:  width,
		height: height,
	}, nil
}

// Init implements tea.Model: it starts the simulation goroutine and
// the redraw ticker.
func (m MonitorModel) Init() tea.Cmd {
	sim, feed := m.sim, m.feed
	run := func() tea.Msg {
		sim.Run(feed.complete)
		return simDoneMsg{}
	}
	return tea.Batch(run, tickCmd(monitorFPS))
}

// Update implements tea.Model.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.sim.Stop()
			m.back = true
		case key.Matches(msg, m.keys.Quit):
			m.sim.Stop()
			m.quitting = true
			return m, tea.Quit
		}

	case TickMsg:
		if _, _, finished := m.feed.snapshot(); !finished {
			return m, tickCmd(monitorFPS)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.canvas.Resize(msg.Width, max(msg.Height-monitorChromeRows, 1))
	}

	return m, nil
}

// View implements tea.Model.
func (m MonitorModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render(centerText("CORDON · LIVE PURSUIT MONITOR", m.width)))
	b.WriteString("\n")

	scene := Scene{Road: m.sim.Road(), World: m.w, Target: m.sim.Target()}
	scene.Draw(m.canvas)
	b.WriteString(RenderCanvas(m.canvas))
	b.WriteString("\n")

	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(m.feedView())
	b.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m MonitorModel) statusView() string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle := lipgloss.NewStyle().Bold(true)

	rb := m.sim.Roadblock()
	line := fmt.Sprintf("%s %s  %s %d  %s %d  %s %s",
		labelStyle.Render("variant"), valueStyle.Render(rb.Variant()),
		labelStyle.Render("level"), rb.Level(),
		labelStyle.Render("slots"), rb.NumberOfSlots(),
		labelStyle.Render("state"), valueStyle.Render(rb.State().String()),
	)

	if _, rec, finished := m.feed.snapshot(); finished && rec != nil {
		line += fmt.Sprintf("  %s %s  %s %d released / %d killed  %s %.1fs",
			labelStyle.Render("outcome"), outcomeStyle(rec.Outcome).Render(rec.Outcome),
			labelStyle.Render("cops"), rec.CopsReleased, rec.CopsKilled,
			labelStyle.Render("pursuit"), rec.Duration.Seconds(),
		)
	}
	return line
}

func (m MonitorModel) feedView() string {
	feedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	lines, _, _ := m.feed.snapshot()

	var b strings.Builder
	for i := 0; i < feedLines; i++ {
		if i < len(lines) {
			b.WriteString(feedStyle.Render("  " + lines[i]))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// outcomeStyle colors an outcome string: a hit means the block worked.
func outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case dispatch.OutcomeHit:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	case dispatch.OutcomeBypassed:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	}
}

// Finished reports whether the simulation produced its record.
func (m MonitorModel) Finished() bool {
	_, _, finished := m.feed.snapshot()
	return finished
}

// Record returns the finished deployment record, or nil while the
// pursuit is still running.
func (m MonitorModel) Record() *dispatch.Record {
	_, rec, _ := m.feed.snapshot()
	return rec
}

// BackRequested reports whether the user asked to return to the
// preview console.
func (m MonitorModel) BackRequested() bool {
	return m.back
}

// IsQuitting reports whether the user quit the monitor.
func (m MonitorModel) IsQuitting() bool {
	return m.quitting
}
