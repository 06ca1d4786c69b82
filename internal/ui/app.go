package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/marketmon/internal/controller"
	"github.com/abelbrown/marketmon/internal/otel"
)

// Actions are the controller operations the UI can trigger. All of them
// return immediately; results arrive later as StateChanged messages.
type Actions struct {
	SetQuery    func(q string) bool
	Refetch     func()
	ToggleChaos func() bool
}

// Options configures NewApp.
type Options struct {
	// Initial is rendered until the first StateChanged arrives.
	Initial    controller.State
	Events     *otel.Logger     // nil disables ui.* events
	Ring       *otel.RingBuffer // nil disables the debug overlay
	RecentSize int
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the controller. It receives state via messages.
type App struct {
	actions Actions
	events  *otel.Logger
	ring    *otel.RingBuffer

	state   controller.State
	input   textinput.Model
	spinner spinner.Model
	recent  *Recent
	recall  int // index into recent.List() while browsing, else -1

	width     int
	height    int
	ready     bool
	showDebug bool
}

// NewApp creates a new App wired to actions.
func NewApp(actions Actions, opts Options) App {
	ti := textinput.New()
	ti.Placeholder = "Search products (e.g. notebook, iphone, keyboard)..."
	ti.Prompt = "/ "
	ti.CharLimit = 120
	ti.SetValue(opts.Initial.Query)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return App{
		actions: actions,
		events:  opts.Events,
		ring:    opts.Ring,
		state:   opts.Initial,
		input:   ti,
		spinner: s,
		recent:  NewRecent(opts.RecentSize),
		recall:  -1,
	}
}

// Init starts the spinner.
func (a App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() && a.events != nil {
		if _, isTick := msg.(spinner.TickMsg); !isTick {
			a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: fmt.Sprintf("%T", msg)})
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.input.Width = max(10, msg.Width-12)
		return a, nil

	case StateChanged:
		if msg.State.Version < a.state.Version {
			return a, nil
		}
		a.state = msg.State
		if !a.input.Focused() {
			a.input.SetValue(a.state.Query)
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.input.Focused() {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}
	if a.input.Focused() {
		return a.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		a.logKey(msg, "quit")
		return a, tea.Quit

	case key.Matches(msg, keys.Focus):
		a.logKey(msg, "focus")
		a.recall = -1
		return a, a.input.Focus()

	case key.Matches(msg, keys.Chaos):
		if a.actions.ToggleChaos != nil {
			on := a.actions.ToggleChaos()
			a.state.Chaos = on
			if a.events != nil {
				a.events.Warn(otel.KindChaos, "ui", fmt.Sprintf("chaos=%t", on))
			}
		}
		return a, nil

	case key.Matches(msg, keys.Refetch):
		a.logKey(msg, "refetch")
		if a.actions.Refetch != nil {
			a.actions.Refetch()
		}
		return a, nil

	case key.Matches(msg, keys.Debug):
		a.logKey(msg, "debug")
		a.showDebug = !a.showDebug
		return a, nil
	}
	return a, nil
}

// handleSearchKey processes keys while the search box has focus.
func (a App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Blur):
		a.input.Blur()
		a.input.SetValue(a.state.Query)
		a.recall = -1
		return a, nil

	case key.Matches(msg, keys.Submit):
		q := a.input.Value()
		a.logKey(msg, "submit "+q)
		if a.actions.SetQuery == nil || !a.actions.SetQuery(q) {
			// Blank query: keep focus so the user can type.
			return a, nil
		}
		a.recent.Add(q)
		a.recall = -1
		a.input.Blur()
		return a, nil

	case key.Matches(msg, keys.Prev):
		a.recallStep(1)
		return a, nil

	case key.Matches(msg, keys.Next):
		a.recallStep(-1)
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// recallStep moves through recent queries; +1 is older, -1 is newer.
// Stepping past the newest entry clears the box.
func (a *App) recallStep(dir int) {
	list := a.recent.List()
	if len(list) == 0 {
		return
	}
	next := a.recall + dir
	switch {
	case next < 0:
		a.recall = -1
		a.input.SetValue("")
		return
	case next >= len(list):
		next = len(list) - 1
	}
	a.recall = next
	a.input.SetValue(list[next])
	a.input.CursorEnd()
}

func (a App) logKey(msg tea.KeyMsg, action string) {
	if a.events == nil {
		return
	}
	a.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: msg.String() + " " + action})
}

// State returns the snapshot currently rendered.
func (a App) State() controller.State {
	return a.state
}

// Searching reports whether the search box has focus.
func (a App) Searching() bool {
	return a.input.Focused()
}

// DebugVisible reports whether the debug overlay is shown.
func (a App) DebugVisible() bool {
	return a.showDebug
}

// View renders the App.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug && a.ring != nil {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + debugStatusBar(a.width)
	}
	return renderScreen(a)
}
