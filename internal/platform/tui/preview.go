package tui

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/dispatch"
	"github.com/vovakirdan/cordon/internal/geo"
	"github.com/vovakirdan/cordon/internal/registry"
	"github.com/vovakirdan/cordon/internal/road"
	"github.com/vovakirdan/cordon/internal/roadblock"
	"github.com/vovakirdan/cordon/internal/world"
)

// Preview stage layout.
const (
	previewLaneWidth     = 5.5
	previewOppositeLanes = 1
	previewTargetGap     = 25.0
	minLanes             = 1
	maxLanes             = 4
)

// chromeRows is the vertical space around the canvas: title, status
// block and help bar.
const chromeRows = 8

// PreviewModel is the Bubble Tea model for staging a roadblock before
// deployment. Every adjustment rebuilds the scene as preview ghosts;
// nothing touches a live world until the user deploys.
type PreviewModel struct {
	cfg    config.Config
	logger *log.Logger
	keys   PreviewKeyMap
	help   help.Model
	canvas *Canvas

	variants []registry.VariantInfo
	variant  int
	level    int
	lanes    int
	flags    roadblock.Flags
	seed     int64

	w      *world.SimWorld
	road   *road.Road
	target world.Entity
	rb     *roadblock.Roadblock
	err    error

	width    int
	height   int
	deploy   bool
	history  bool
	quitting bool
}

// NewPreviewModel creates a preview console over the given config.
func NewPreviewModel(cfg config.Config, logger *log.Logger, width, height int) PreviewModel {
	m := PreviewModel{
		cfg:      cfg,
		logger:   logger.WithPrefix("preview"),
		keys:     DefaultPreviewKeyMap(),
		help:     help.New(),
		canvas:   NewCanvas(width, max(height-chromeRows, 1)),
		variants: registry.List(),
		level:    1,
		lanes:    2,
		seed:     time.Now().UnixNano(),
		width:    width,
		height:   height,
	}
	m.rebuild()
	return m
}

// rebuild stages a fresh preview world from the current settings.
func (m *PreviewModel) rebuild() {
	if m.rb != nil {
		m.rb.Dispose()
	}
	m.rb = nil
	m.err = nil

	m.w = world.NewSim()
	r, err := road.Build(road.Params{
		LaneWidth:              previewLaneWidth,
		LanesSameDirection:     m.lanes,
		LanesOppositeDirection: previewOppositeLanes,
	})
	if err != nil {
		m.err = err
		return
	}
	m.road = r

	// A staged target south of the block so pursuit variants preview.
	targetPos := geo.Offset(r.Lanes[len(r.Lanes)-1].Position, geo.Opposite(r.NodeHeading), previewTargetGap)
	target, err := m.w.CreateVehicle("sultan", targetPos, r.NodeHeading)
	if err != nil {
		m.err = err
		return
	}
	m.target = target

	rb, err := registry.Create(m.variants[m.variant].Name, roadblock.Deps{
		World:   m.w,
		Pursuit: m.w,
		Config:  m.cfg,
		Logger:  m.logger,
		Rand:    rand.New(rand.NewSource(m.seed)),
	}, roadblock.Params{
		Road:          r,
		TargetHeading: r.NodeHeading,
		Level:         m.level,
		Flags:         m.flags,
		Target:        target,
	})
	if err != nil {
		m.err = err
		return
	}
	rb.CreatePreview()
	m.rb = rb
}

func (m *PreviewModel) cycleJoinMode() {
	switch {
	case !m.flags.JoinPursuit && !m.flags.JoinPursuitOnBypass && !m.flags.JoinPursuitOnHit:
		m.flags.JoinPursuit = true
	case m.flags.JoinPursuit:
		m.flags.JoinPursuit = false
		m.flags.JoinPursuitOnBypass = true
	case m.flags.JoinPursuitOnBypass:
		m.flags.JoinPursuitOnBypass = false
		m.flags.JoinPursuitOnHit = true
	default:
		m.flags.JoinPursuitOnHit = false
	}
}

// Init implements tea.Model.
func (m PreviewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			if m.rb != nil {
				m.rb.Dispose()
			}
			return m, tea.Quit

		case key.Matches(msg, m.keys.PrevVariant):
			m.variant--
			if m.variant < 0 {
				m.variant = len(m.variants) - 1
			}
			m.rebuild()

		case key.Matches(msg, m.keys.NextVariant):
			m.variant = (m.variant + 1) % len(m.variants)
			m.rebuild()

		case key.Matches(msg, m.keys.LevelUp):
			if m.level < m.cfg.MaxLevel() {
				m.level++
				m.rebuild()
			}

		case key.Matches(msg, m.keys.LevelDown):
			if m.level > 1 {
				m.level--
				m.rebuild()
			}

		case key.Matches(msg, m.keys.FewerLanes):
			if m.lanes > minLanes {
				m.lanes--
				m.rebuild()
			}

		case key.Matches(msg, m.keys.MoreLanes):
			if m.lanes < maxLanes {
				m.lanes++
				m.rebuild()
			}

		case key.Matches(msg, m.keys.Lights):
			m.flags.EnableLights = !m.flags.EnableLights
			m.rebuild()

		case key.Matches(msg, m.keys.SlowTraffic):
			m.flags.SlowTraffic = !m.flags.SlowTraffic
			m.rebuild()

		case key.Matches(msg, m.keys.Strips):
			m.flags.SpikeStrips = !m.flags.SpikeStrips
			m.rebuild()

		case key.Matches(msg, m.keys.ForceSeat):
			m.flags.ForceInVehicle = !m.flags.ForceInVehicle
			m.rebuild()

		case key.Matches(msg, m.keys.JoinMode):
			m.cycleJoinMode()
			m.rebuild()

		case key.Matches(msg, m.keys.Reroll):
			m.seed = time.Now().UnixNano()
			m.rebuild()

		case key.Matches(msg, m.keys.Deploy):
			if m.err == nil && m.rb != nil {
				m.deploy = true
			}

		case key.Matches(msg, m.keys.History):
			m.history = true
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.canvas.Resize(msg.Width, max(msg.Height-chromeRows, 1))
	}

	return m, nil
}

// View implements tea.Model.
func (m PreviewModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render(centerText("CORDON · DEPLOYMENT PREVIEW", m.width)))
	b.WriteString("\n")

	scene := Scene{Road: m.road, World: m.w, Target: m.target}
	scene.Draw(m.canvas)
	b.WriteString(RenderCanvas(m.canvas))
	b.WriteString("\n")

	b.WriteString(m.statusView())
	b.WriteString("\n")

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m PreviewModel) statusView() string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle := lipgloss.NewStyle().Bold(true)

	info := m.variants[m.variant]
	slots := 0
	ghosts := 0
	if m.rb != nil {
		slots = m.rb.NumberOfSlots()
		ghosts = m.w.PreviewCount()
	}

	line1 := fmt.Sprintf("%s %s  %s %d/%d  %s %d+%d  %s %d (%d ghosts)",
		labelStyle.Render("variant"), valueStyle.Render(info.Name),
		labelStyle.Render("level"), m.level, m.cfg.MaxLevel(),
		labelStyle.Render("lanes"), m.lanes, previewOppositeLanes,
		labelStyle.Render("slots"), slots, ghosts,
	)
	line2 := fmt.Sprintf("%s %s  %s %d",
		labelStyle.Render("flags"), valueStyle.Render(m.flags.String()),
		labelStyle.Render("seed"), m.seed,
	)

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		return line1 + "\n" + line2 + "\n" + errStyle.Render("error: "+m.err.Error())
	}
	return line1 + "\n" + line2 + "\n" + labelStyle.Render(info.Description)
}

// Teardown disposes the staged roadblock and its preview ghosts.
// rebuild restores the stage afterwards.
func (m *PreviewModel) Teardown() {
	if m.rb != nil {
		m.rb.Dispose()
		m.rb = nil
	}
}

// Restage rebuilds the preview world with the current settings.
func (m *PreviewModel) Restage() {
	m.rebuild()
}

// DeployRequested reports whether the user asked to run the staged
// deployment. The flag resets once read.
func (m *PreviewModel) DeployRequested() bool {
	if m.deploy {
		m.deploy = false
		return true
	}
	return false
}

// HistoryRequested reports whether the user asked for the history
// browser. The flag resets once read.
func (m *PreviewModel) HistoryRequested() bool {
	if m.history {
		m.history = false
		return true
	}
	return false
}

// IsQuitting reports whether the user quit the console.
func (m PreviewModel) IsQuitting() bool {
	return m.quitting
}

// Seed returns the current stage seed.
func (m PreviewModel) Seed() int64 {
	return m.seed
}

// DeployParams translates the staged settings into dispatch
// parameters for a live run.
func (m PreviewModel) DeployParams() dispatch.Params {
	p := dispatch.DefaultParams()
	p.Variant = m.variants[m.variant].Name
	p.Level = m.level
	p.Flags = m.flags
	p.Lanes = m.lanes
	p.OppositeLanes = previewOppositeLanes
	p.LaneWidth = previewLaneWidth
	return p
}

// centerText pads text to be centered in the given width.
func centerText(text string, width int) string {
	if pad := (width - lipgloss.Width(text)) / 2; pad > 0 {
		return strings.Repeat(" ", pad) + text
	}
	return text
}
