package tui

import "github.com/charmbracelet/bubbles/key"

// PreviewKeyMap defines the key bindings for the preview console.
type PreviewKeyMap struct {
	PrevVariant key.Binding
	NextVariant key.Binding
	LevelUp     key.Binding
	LevelDown   key.Binding
	FewerLanes  key.Binding
	MoreLanes   key.Binding
	Lights      key.Binding
	SlowTraffic key.Binding
	Strips      key.Binding
	ForceSeat   key.Binding
	JoinMode    key.Binding
	Reroll      key.Binding
	Deploy      key.Binding
	History     key.Binding
	Quit        key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k PreviewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevVariant, k.LevelUp, k.Strips, k.Deploy, k.History, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k PreviewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevVariant, k.NextVariant, k.LevelUp, k.LevelDown, k.FewerLanes, k.MoreLanes},
		{k.Lights, k.SlowTraffic, k.Strips, k.ForceSeat, k.JoinMode},
		{k.Reroll, k.Deploy, k.History, k.Quit},
	}
}

// DefaultPreviewKeyMap returns default preview bindings.
func DefaultPreviewKeyMap() PreviewKeyMap {
	return PreviewKeyMap{
		PrevVariant: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "variant"),
		),
		NextVariant: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "variant"),
		),
		LevelUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "level"),
		),
		LevelDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "level"),
		),
		FewerLanes: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "fewer lanes"),
		),
		MoreLanes: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "more lanes"),
		),
		Lights: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "lights"),
		),
		SlowTraffic: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "slow traffic"),
		),
		Strips: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "spike strips"),
		),
		ForceSeat: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "seat crew"),
		),
		JoinMode: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "join-pursuit mode"),
		),
		Reroll: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reroll seed"),
		),
		Deploy: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "deploy"),
		),
		History: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "history"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// MonitorKeyMap defines the key bindings for the live monitor.
type MonitorKeyMap struct {
	Back key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k MonitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k MonitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Back, k.Quit}}
}

// DefaultMonitorKeyMap returns default monitor bindings.
func DefaultMonitorKeyMap() MonitorKeyMap {
	return MonitorKeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryKeyMap defines the key bindings for the history browser.
type HistoryKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PrevVariant key.Binding
	NextVariant key.Binding
	Back        key.Binding
	Quit        key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextVariant, k.Back}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevVariant, k.NextVariant},
		{k.Back, k.Quit},
	}
}

// DefaultHistoryKeyMap returns default history bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PrevVariant: key.NewBinding(
			key.WithKeys("left", "h", "shift+tab"),
			key.WithHelp("←/h", "prev filter"),
		),
		NextVariant: key.NewBinding(
			key.WithKeys("right", "l", "tab"),
			key.WithHelp("→/l", "next filter"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc/b", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
