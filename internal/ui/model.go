package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/embermud/ember/internal/prefs"
	"github.com/embermud/ember/internal/relay"
	"github.com/embermud/ember/internal/render"
	"github.com/embermud/ember/internal/session"
	"github.com/embermud/ember/internal/state"
	"github.com/embermud/ember/internal/stream"
	"github.com/embermud/ember/internal/transcript"
)

const drainEvery = 100 * time.Millisecond

// Options configure the UI runtime.
type Options struct {
	Context    context.Context
	Session    *session.Session
	Conn       *relay.Conn
	Buffer     *stream.Buffer
	Status     *state.Store
	Transcript *transcript.Writer
	Prefs      prefs.Prefs
	PrefsPath  string
}

// drainMsg fires the periodic poll of the session accumulator.
type drainMsg time.Time

// sentMsg reports the outcome of an async command send.
type sentMsg struct{ err error }

// Model is the bubbletea model for the whole client.
type Model struct {
	opts     Options
	renderer *render.Renderer
	theme    render.Theme

	viewport viewport.Model
	input    textinput.Model

	// view selection: index 0 is the merged view over prefs.Channels,
	// higher indexes are single channels discovered at runtime.
	views   []string
	viewIdx int

	width  int
	height int
	ready  bool
	err    error
}

// NewModel wires the model from its collaborators.
func NewModel(opts Options) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "command"
	input.CharLimit = 512
	input.Focus()

	return Model{
		opts:     opts,
		renderer: render.NewRenderer(opts.Prefs.Theme),
		theme:    render.GetTheme(opts.Prefs.Theme),
		input:    input,
		views:    []string{mergedViewName},
	}
}

const mergedViewName = "all"

// Init starts the drain loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(drainEvery, func(t time.Time) tea.Msg {
		return drainMsg(t)
	})
}

// Update handles input, resize, and the drain tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshViewport(true)
		m.ready = true
		return m, nil

	case drainMsg:
		m.drain()
		return m, m.tick()

	case sentMsg:
		m.err = msg.err
		m.opts.Status.SetError(msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cycleView(1)
		return m, nil
	case "shift+tab":
		m.cycleView(-1)
		return m, nil
	case "esc":
		m.viewIdx = 0
		m.refreshViewport(true)
		return m, nil
	case "ctrl+t":
		next := render.NextTheme(m.theme.Name)
		m.theme = render.GetTheme(next)
		m.renderer.SetTheme(next)
		m.savePrefs(next)
		m.refreshViewport(true)
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "enter":
		return m.submitCommand()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitCommand echoes the typed command locally and sends it to the relay.
func (m Model) submitCommand() (tea.Model, tea.Cmd) {
	cmd := m.input.Value()
	m.input.Reset()
	if cmd == "" {
		return m, nil
	}

	echo := m.theme.Styles().MutedText.Render("> " + cmd)
	m.opts.Buffer.Append(stream.NewMessage(stream.MainChannel, echo, nil))
	m.logTranscript("> " + cmd)
	m.refreshViewport(false)

	conn := m.opts.Conn
	ctx := m.opts.Context
	return m, func() tea.Msg {
		if conn == nil {
			return sentMsg{err: fmt.Errorf("not connected")}
		}
		return sentMsg{err: conn.Send(ctx, cmd)}
	}
}

// drain polls the session bridge: take the accumulated tags in one step,
// convert, and distribute to the scrollback buffer and status store. The
// atomic take means tags parsed while this tick runs wait for the next one
// instead of being cleared unread.
func (m *Model) drain() {
	sess := m.opts.Session
	if sess == nil {
		return
	}
	tags := sess.Drain()
	if len(tags) == 0 {
		return
	}

	msgs, updates := m.renderer.Convert(tags)
	for _, msg := range msgs {
		m.opts.Buffer.Append(msg)
		for _, src := range msg.Source {
			m.logTranscript(src.FlattenText())
		}
	}
	m.opts.Status.Apply(updates)

	m.syncViews()
	m.refreshViewport(false)
}

// syncViews folds newly seen channels into the view cycle.
func (m *Model) syncViews() {
	known := make(map[string]bool, len(m.views))
	for _, v := range m.views {
		known[v] = true
	}
	for _, ch := range m.opts.Buffer.Channels() {
		if !known[ch] {
			m.views = append(m.views, ch)
		}
	}
}

func (m *Model) cycleView(delta int) {
	m.syncViews()
	m.viewIdx = (m.viewIdx + delta + len(m.views)) % len(m.views)
	m.refreshViewport(true)
}

// activeChannels returns the channel set backing the current view.
func (m *Model) activeChannels() []string {
	if m.viewIdx == 0 {
		return m.opts.Prefs.Channels
	}
	return []string{m.views[m.viewIdx]}
}

// refreshViewport rebuilds the viewport content from the merged view and
// marks the visible channels read. When force is false and the user has
// scrolled up, the scroll position is preserved.
func (m *Model) refreshViewport(force bool) {
	channels := m.activeChannels()
	msgs := m.opts.Buffer.Merged(channels...)

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages(msgs))
	if force || atBottom {
		m.viewport.GotoBottom()
	}
	m.opts.Buffer.ClearUnread(channels...)
}

func (m *Model) renderMessages(msgs []stream.Message) string {
	var out []byte
	styles := m.theme.Styles()
	for _, msg := range msgs {
		if m.opts.Prefs.ShowTimestamps {
			out = append(out, styles.FaintText.Render(msg.Timestamp.Format("15:04:05 "))...)
		}
		out = append(out, msg.Text...)
		out = append(out, '\n')
	}
	return string(out)
}

func (m *Model) logTranscript(line string) {
	if m.opts.Transcript == nil || line == "" {
		return
	}
	// Transcript faults must never disturb the session.
	_ = m.opts.Transcript.WriteLine(line)
}

func (m *Model) savePrefs(themeName string) {
	p := m.opts.Prefs
	p.Theme = themeName
	m.opts.Prefs = p
	_ = prefs.Save(m.opts.PrefsPath, p)
}

func (m *Model) layout() {
	headerHeight := 3
	inputHeight := 1
	vh := m.height - headerHeight - inputHeight
	if vh < 1 {
		vh = 1
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, vh)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vh
	}
	m.input.Width = m.width - 4
}
