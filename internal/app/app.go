package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/client"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/errfmt"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/theme"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/viewport"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/views/debug"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/views/help"
	"github.com/EkhtiarUddin/real-time-interactive-browser/internal/views/status"
)

// DefaultProcessingTimeout bounds how long clicks stay locked after a
// command when the backend never answers.
const DefaultProcessingTimeout = 15 * time.Second

const droppedNotice = "Not connected - command dropped"

// Bootstrapper starts a browser session.
type Bootstrapper interface {
	StartSession(ctx context.Context) (*client.Session, error)
}

// Conn is the part of client.Conn the console drives.
type Conn interface {
	Connect(ctx context.Context) error
	Send(cmd client.Command) bool
	Close() error
}

// ConnFactory builds a connection for a session socket URL.
type ConnFactory func(url string, cb client.Callbacks) Conn

// Options configures the root model.
type Options struct {
	Bootstrap         Bootstrapper
	NewConn           ConnFactory
	WSBase            string
	StartURL          string
	MaxAttempts       int
	ProcessingTimeout time.Duration
	Logger            *zap.Logger
}

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDebug
	OverlayHelp
)

// Focus identifies the widget receiving keys.
type Focus int

const (
	FocusURL Focus = iota
	FocusText
	FocusViewport
)

type phase int

const (
	phaseLoading phase = iota
	phaseFailed
	phaseRunning
)

// sessionStartedMsg completes a bootstrap for generation gen.
type sessionStartedMsg struct {
	gen     int
	session *client.Session
	err     error
}

// connectResultMsg reports the first Connect call of a generation.
type connectResultMsg struct {
	gen int
	err error
}

// bridgeEvent wraps a bridge message with the generation that produced it.
type bridgeEvent struct {
	gen int
	msg tea.Msg
}

type processingTimeoutMsg struct{ token int }

type previewKey struct {
	frame      *viewport.Frame
	cols, rows int
}

// Model is the root Bubble Tea model.
type Model struct {
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	// Session state. gen increases on every bootstrap; messages from older
	// generations are dropped.
	gen     int
	phase   phase
	bootErr error
	session *client.Session
	conn    Conn
	bridge  *client.Bridge

	store   *viewport.Store
	preview viewport.Rendition
	rendKey previewKey

	processing bool
	procToken  int

	banner       *errfmt.Response
	bannerSticky bool
	notice       string

	focus        Focus
	urlInput     textinput.Model
	textInput    textinput.Model
	preventEnter bool
	overlay      Overlay

	// Sub-views.
	spinner   spinner.Model
	statusBar status.Model
	debug     debug.Model
	help      help.Model
}

// New creates the root model.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = DefaultProcessingTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	url := textinput.New()
	url.Prompt = "URL  "
	url.Placeholder = "https://example.com"
	url.SetValue(opts.StartURL)
	url.Focus()

	text := textinput.New()
	text.Prompt = "Type "
	text.Placeholder = "text to type into the page"

	keys := DefaultKeyMap()
	events := debug.New()
	events.Hint = keys.LogHint()
	return Model{
		opts:      opts,
		log:       opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		keys:      keys,
		gen:       1,
		store:     &viewport.Store{},
		urlInput:  url,
		textInput: text,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		statusBar: status.New(),
		debug:     events,
		help:      help.New(keys.HelpBindings()),
	}
}

// Init starts the first bootstrap.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.startSession())
}

func (m Model) startSession() tea.Cmd {
	ctx, gen, b := m.ctx, m.gen, m.opts.Bootstrap
	return func() tea.Msg {
		s, err := b.StartSession(ctx)
		return sessionStartedMsg{gen: gen, session: s, err: err}
	}
}

func listen(b *client.Bridge, gen int) tea.Cmd {
	next := b.Next()
	return func() tea.Msg {
		msg := next()
		if msg == nil {
			return nil
		}
		return bridgeEvent{gen: gen, msg: msg}
	}
}

func connect(ctx context.Context, c Conn, gen int) tea.Cmd {
	return func() tea.Msg {
		return connectResultMsg{gen: gen, err: c.Connect(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.refreshPreview()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.urlInput.Width = max(10, msg.Width-10)
		m.textInput.Width = max(10, msg.Width-28)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.statusBar.Spinner = m.spinner.View()
		return m, cmd

	case sessionStartedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.startConnection(msg.session, msg.err)

	case connectResultMsg:
		if msg.gen == m.gen && msg.err != nil && !errors.Is(msg.err, client.ErrClosed) {
			m.log.Debug("initial connect failed", zap.Error(msg.err))
		}
		return m, nil

	case bridgeEvent:
		if msg.gen != m.gen || m.bridge == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.handleSocket(msg.msg)
		return m, tea.Batch(cmd, listen(m.bridge, m.gen))

	case processingTimeoutMsg:
		if msg.token == m.procToken && m.processing {
			m.setProcessing(false)
			m.debug.Log(debug.KindCommand, "processing timed out")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.statusBar.Retry, cmd = m.statusBar.Retry.Update(msg)
	if cmd != nil {
		return m, cmd
	}
	return m.updateInputs(msg)
}

func (m Model) startConnection(s *client.Session, err error) (Model, tea.Cmd) {
	if err == nil {
		var url string
		url, err = s.SocketURL(m.opts.WSBase)
		if err == nil {
			m.session = s
			m.phase = phaseRunning
			m.statusBar.SessionID = s.ID
			m.setState("connecting")
			m.bridge = client.NewBridge(m.log, m.opts.MaxAttempts)
			m.conn = m.opts.NewConn(url, m.bridge.Callbacks())
			m.debug.Logf(debug.KindSocket, "session %s, dialing %s", s.ID, url)
			m.log.Info("session started", zap.String("session_id", s.ID), zap.String("url", url))
			return m, tea.Batch(connect(m.ctx, m.conn, m.gen), listen(m.bridge, m.gen))
		}
	}
	m.phase = phaseFailed
	m.bootErr = err
	m.debug.Log(debug.KindError, err.Error())
	m.log.Error("bootstrap failed", zap.Error(err))
	return m, nil
}

func (m Model) handleSocket(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case client.WSConnectedMsg:
		m.setState("open")
		m.clearBanner(true)
		m.debug.Log(debug.KindSocket, "connected")
		return m, nil

	case client.WSErrorMsg:
		m.debug.Logf(debug.KindError, "socket error: %v", msg.Err)
		return m, nil

	case client.WSDisconnectedMsg:
		m.setState("disconnected")
		m.setProcessing(false)
		if msg.Err != nil {
			m.debug.Logf(debug.KindSocket, "closed: %v", msg.Err)
		} else {
			m.debug.Log(debug.KindSocket, "closed")
		}
		return m, nil

	case client.WSRetryMsg:
		m.setState("reconnecting")
		m.statusBar.Attempt = msg.Attempt
		m.statusBar.MaxAttempt = msg.Max
		m.statusBar.RetryIn = msg.Delay
		m.debug.Logf(debug.KindSocket, "reconnect %d/%d in %s", msg.Attempt, msg.Max, msg.Delay)
		frac := 1.0
		if msg.Max > 0 {
			frac = float64(msg.Attempt) / float64(msg.Max)
		}
		return m, m.statusBar.Retry.SetTarget(frac)

	case client.WSGaveUpMsg:
		m.setState("exhausted")
		resp := errfmt.Format("WebSocket connection lost")
		m.banner, m.bannerSticky = &resp, true
		m.debug.Logf(debug.KindError, "gave up after %d attempts", msg.Attempts)
		return m, nil

	case client.WSViewportMsg:
		m.setProcessing(false)
		f, err := viewport.Decode(msg.Data, msg.MIME)
		if err != nil {
			m.log.Warn("dropping undecodable frame", zap.String("mime", msg.MIME), zap.Error(err))
			m.debug.Logf(debug.KindError, "frame: %v", err)
			return m, nil
		}
		m.store.Replace(f)
		m.statusBar.FrameWidth = f.Native.Width
		m.statusBar.FrameHeight = f.Native.Height
		m.statusBar.FrameAt = f.Received
		m.debug.Logf(debug.KindFrame, "%s %dx%d %dB", f.MIME, f.Native.Width, f.Native.Height, len(f.Data))
		return m, nil

	case client.WSControlErrorMsg:
		m.setProcessing(false)
		resp := errfmt.Format(msg.Message)
		if !m.bannerSticky {
			m.banner = &resp
		}
		m.debug.Log(debug.KindError, msg.Message)
		return m, nil
	}
	return m, nil
}

// handleLogKey applies scroll and filter keys to the open event log.
func (m *Model) handleLogKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.ScrollUp):
		m.debug.Scroll(5)
	case key.Matches(msg, m.keys.ScrollDown):
		m.debug.Scroll(-5)
	case key.Matches(msg, m.keys.LogKind):
		m.debug.Toggle(debug.Kind(msg.String()[0] - '1'))
	case key.Matches(msg, m.keys.LogErrors):
		m.debug.ErrorsOnly()
	case key.Matches(msg, m.keys.LogAll):
		m.debug.ShowAll()
	case key.Matches(msg, m.keys.LogClear):
		m.debug.Clear()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.closeOverlay()...):
			m.overlay = OverlayNone
		case m.overlay == OverlayDebug:
			m.handleLogKey(msg)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, nil

	case key.Matches(msg, m.keys.Help),
		m.focus == FocusViewport && key.Matches(msg, m.keys.HelpViewport):
		m.overlay = OverlayHelp
		return m, nil
	}

	if m.phase != phaseRunning {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Escape) && m.banner != nil && !m.bannerSticky:
		m.clearBanner(false)
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.setFocus((m.focus + 1) % 3)

	case key.Matches(msg, m.keys.PreventEnter):
		m.preventEnter = !m.preventEnter
		return m, nil
	}

	if m.focus == FocusViewport {
		if name, ok := remoteKeys[msg.String()]; ok {
			return m.send(client.Keypress(name), "keypress "+name)
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Enter) {
		return m.submit()
	}
	return m.updateInputs(msg)
}

func (m Model) submit() (Model, tea.Cmd) {
	switch m.focus {
	case FocusURL:
		url := strings.TrimSpace(m.urlInput.Value())
		if url == "" {
			return m, nil
		}
		return m.send(client.Navigate(url), "navigate "+url)
	case FocusText:
		text := m.textInput.Value()
		if text == "" {
			return m, nil
		}
		next, cmd := m.send(client.Type(text, m.preventEnter), fmt.Sprintf("type %q", text))
		if next.notice == "" {
			next.textInput.Reset()
		}
		return next, cmd
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.phase != phaseRunning || m.overlay != OverlayNone {
		return m, nil
	}
	f := m.store.Current()
	if f == nil || m.preview.Cols == 0 {
		return m, nil
	}
	ox, oy := m.previewOrigin()
	col, row := msg.X-ox, msg.Y-oy
	if col < 0 || row < 0 || col >= m.preview.Cols || row >= m.preview.Rows {
		return m, nil
	}
	if m.processing {
		m.debug.Log(debug.KindCommand, "click ignored while processing")
		return m, nil
	}
	x, y, err := viewport.MapClick(viewport.CellPoint(col, row), m.preview.Rect(), f.Native)
	if err != nil {
		m.debug.Logf(debug.KindCommand, "click rejected: %v", err)
		return m, nil
	}
	m, focusCmd := m.setFocus(FocusViewport)
	next, cmd := m.send(client.Click(x, y), fmt.Sprintf("click %d,%d", x, y))
	return next, tea.Batch(focusCmd, cmd)
}

// send hands cmd to the connection and locks clicks until the backend
// answers.
func (m Model) send(cmd client.Command, label string) (Model, tea.Cmd) {
	if m.conn == nil || !m.conn.Send(cmd) {
		m.notice = droppedNotice
		m.debug.Log(debug.KindError, droppedNotice+": "+label)
		return m, nil
	}
	m.notice = ""
	m.debug.Log(debug.KindCommand, label)
	m.setProcessing(true)
	token := m.procToken
	return m, tea.Tick(m.opts.ProcessingTimeout, func(time.Time) tea.Msg {
		return processingTimeoutMsg{token: token}
	})
}

func (m *Model) setProcessing(on bool) {
	if on {
		m.procToken++
	}
	m.processing = on
	m.statusBar.Processing = on
}

func (m *Model) setState(s string) {
	m.statusBar.State = s
}

func (m *Model) clearBanner(includeSticky bool) {
	if m.bannerSticky && !includeSticky {
		return
	}
	m.banner = nil
	m.bannerSticky = false
}

func (m Model) setFocus(f Focus) (Model, tea.Cmd) {
	m.focus = f
	m.urlInput.Blur()
	m.textInput.Blur()
	switch f {
	case FocusURL:
		return m, m.urlInput.Focus()
	case FocusText:
		return m, m.textInput.Focus()
	}
	return m, nil
}

func (m Model) updateInputs(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusURL:
		m.urlInput, cmd = m.urlInput.Update(msg)
	case FocusText:
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m Model) reload() (Model, tea.Cmd) {
	m.shutdown()
	m.gen++
	m.phase = phaseLoading
	m.bootErr = nil
	m.session = nil
	m.notice = ""
	m.clearBanner(true)
	m.statusBar = status.New()
	m.statusBar.Width = m.width
	m.debug.SetGeneration(m.gen)
	m.debug.Logf(debug.KindSocket, "reloading (generation %d)", m.gen)
	return m, tea.Batch(m.spinner.Tick, m.startSession())
}

// shutdown closes the connection, stops its bridge and releases the frame.
func (m *Model) shutdown() {
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.log.Debug("close connection", zap.Error(err))
		}
		m.conn = nil
	}
	if m.bridge != nil {
		m.bridge.Stop()
		m.bridge = nil
	}
	m.store.Clear()
	m.preview = viewport.Rendition{}
	m.rendKey = previewKey{}
	m.setProcessing(false)
}

// --- layout ---

func (m Model) bannerView() string {
	if m.banner == nil {
		return ""
	}
	hint := "esc: dismiss"
	if m.bannerSticky {
		hint = "ctrl+r: new session"
	}
	body := theme.StyleError.Render(m.banner.Message) + "\n" +
		m.banner.Suggestion + "  " + theme.StyleDimmed.Render(hint)
	return lipgloss.NewStyle().
		Width(max(20, m.width-2)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorDanger).
		Render(body)
}

func (m Model) inputsView() string {
	enter := "on"
	if m.preventEnter {
		enter = "off"
	}
	toggle := theme.StyleDimmed.Render(fmt.Sprintf("  [ctrl+e] enter after typing: %s", enter))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.urlInput.View(),
		m.textInput.View()+toggle,
	)
}

// topSections returns everything rendered above the preview.
func (m Model) topSections() []string {
	out := []string{m.statusBar.View()}
	if b := m.bannerView(); b != "" {
		out = append(out, b)
	}
	return append(out, m.inputsView())
}

func (m Model) topHeight() int {
	h := 0
	for _, s := range m.topSections() {
		h += lipgloss.Height(s)
	}
	return h
}

// previewOrigin is the screen cell of the preview's top-left pixel pair.
func (m Model) previewOrigin() (col, row int) {
	return 1, m.topHeight() + 1
}

// previewBudget is the cell area available inside the preview border.
func (m Model) previewBudget() (cols, rows int) {
	return m.width - 2, m.height - m.topHeight() - 3
}

func (m *Model) refreshPreview() {
	if m.phase != phaseRunning || m.width == 0 {
		return
	}
	f := m.store.Current()
	cols, rows := m.previewBudget()
	k := previewKey{frame: f, cols: cols, rows: rows}
	if k == m.rendKey {
		return
	}
	m.rendKey = k
	if f == nil || cols <= 0 || rows <= 0 {
		m.preview = viewport.Rendition{}
		return
	}
	m.preview = viewport.Render(f.Image, cols, rows)
}

func (m Model) footer() string {
	if m.notice != "" {
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("  " + m.notice)
	}
	return theme.StyleDimmed.Render("  tab:focus  enter:send  ctrl+e:enter  ctrl+d:debug  f1:help  ctrl+r:reload  ctrl+c:quit")
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	switch m.phase {
	case phaseLoading:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Starting browser session...")
	case phaseFailed:
		return m.failedView()
	}

	sections := m.topSections()
	cols, rows := m.previewBudget()
	var body string
	switch m.overlay {
	case OverlayDebug:
		body = m.debug.View(m.width, m.height-m.topHeight())
	case OverlayHelp:
		body = m.help.View(m.width)
	default:
		body = m.previewView(cols, rows)
	}
	sections = append(sections, body, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) previewView(cols, rows int) string {
	style := theme.StyleBorder
	if m.focus == FocusViewport {
		style = theme.StyleFocused
	}
	content := m.preview.Text
	if m.preview.Cols == 0 {
		content = lipgloss.Place(max(cols, 1), max(rows, 1), lipgloss.Center, lipgloss.Center,
			theme.StyleDimmed.Render("Waiting for the first frame..."))
	}
	return style.Render(content)
}

func (m Model) failedView() string {
	msg := "unknown error"
	if m.bootErr != nil {
		msg = m.bootErr.Error()
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		theme.StyleError.Render("Could not start a browser session"),
		"",
		msg,
		"",
		theme.StyleDimmed.Render("ctrl+r: try again  ctrl+c: quit"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().
			Padding(1, 3).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(theme.ColorDanger).
			Render(body))
}
