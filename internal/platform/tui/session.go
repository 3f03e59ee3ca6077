package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/cordon/internal/config"
	"github.com/vovakirdan/cordon/internal/dispatch"
	"github.com/vovakirdan/cordon/internal/storage"
)

// sessionMode selects which console a session currently shows.
type sessionMode int

const (
	modePreview sessionMode = iota
	modeMonitor
	modeHistory
)

// SessionModel is the top-level model for one operator session,
// local or over SSH: stage a roadblock in the preview console, deploy
// it into the live monitor, browse history, back to staging.
type SessionModel struct {
	cfg    config.Config
	logger *log.Logger
	store  *storage.Store

	mode    sessionMode
	preview PreviewModel
	monitor MonitorModel
	history HistoryModel

	width    int
	height   int
	quitting bool
}

// NewSessionModel creates a session starting in the preview console.
// store may be nil; deployments are then not persisted.
func NewSessionModel(cfg config.Config, logger *log.Logger, store *storage.Store, width, height int) SessionModel {
	return SessionModel{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		preview: NewPreviewModel(cfg, logger, width, height),
		width:   width,
		height:  height,
	}
}

// Init implements tea.Model.
func (m SessionModel) Init() tea.Cmd {
	return m.preview.Init()
}

// Update implements tea.Model.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
		m.height = wsm.Height
	}

	switch m.mode {
	case modeMonitor:
		return m.updateMonitor(msg)
	case modeHistory:
		return m.updateHistory(msg)
	default:
		return m.updatePreview(msg)
	}
}

func (m SessionModel) updatePreview(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.preview.Update(msg)
	if pm, ok := next.(PreviewModel); ok {
		m.preview = pm
	}

	if m.preview.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.preview.DeployRequested() {
		params := m.preview.DeployParams()
		seed := m.preview.Seed()
		m.preview.Teardown()

		var saver dispatch.Saver
		if m.store != nil {
			saver = m.store
		}
		monitor, err := NewMonitorModel(m.cfg, m.logger, saver, params, seed, m.width, m.height)
		if err != nil {
			m.logger.Error("staging deployment", "err", err)
			m.preview.Restage()
			return m, cmd
		}
		m.monitor = monitor
		m.mode = modeMonitor
		return m, m.monitor.Init()
	}

	if m.preview.HistoryRequested() {
		m.preview.Teardown()
		m.history = NewHistoryModel(m.store, m.width, m.height)
		m.mode = modeHistory
		return m, m.history.Init()
	}

	return m, cmd
}

func (m SessionModel) updateMonitor(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.monitor.Update(msg)
	if mm, ok := next.(MonitorModel); ok {
		m.monitor = mm
	}

	if m.monitor.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.monitor.BackRequested() {
		m.preview.Restage()
		m.mode = modePreview
		return m, m.preview.Init()
	}

	return m, cmd
}

func (m SessionModel) updateHistory(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.history.Update(msg)
	if hm, ok := next.(HistoryModel); ok {
		m.history = hm
	}

	if m.history.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.history.BackRequested() {
		m.preview.Restage()
		m.mode = modePreview
		return m, m.preview.Init()
	}

	return m, cmd
}

// View implements tea.Model.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.mode {
	case modeMonitor:
		return m.monitor.View()
	case modeHistory:
		return m.history.View()
	default:
		return m.preview.View()
	}
}
