package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/storyreel/internal/progress"
	"github.com/vanderheijden86/storyreel/pkg/carousel"
	"github.com/vanderheijden86/storyreel/pkg/debug"
	"github.com/vanderheijden86/storyreel/pkg/metrics"
	"github.com/vanderheijden86/storyreel/pkg/navigate"
	"github.com/vanderheijden86/storyreel/pkg/story"
	"github.com/vanderheijden86/storyreel/pkg/watcher"
)

// Rows reserved around the strip: header on top, status and help below.
const (
	headerRows = 1
	footerRows = 2
)

// Default terminal size until the first WindowSizeMsg arrives.
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// DeckChangedMsg is sent when the deck file or its art changes on disk.
type DeckChangedMsg struct {
	Change watcher.Change
}

// DeckLoadedMsg carries a re-read deck.
type DeckLoadedMsg struct {
	Deck story.Deck
	Err  error
}

type prefetchDoneMsg struct {
	count int
	err   error
}

type progressLoadedMsg struct {
	cards []progress.Card
	err   error
}

// progressSavedMsg reports the seen counts of the cards just recorded.
type progressSavedMsg struct {
	seen map[string]int
	err  error
}

type progressResetMsg struct {
	err error
}

// WatchDeckCmd returns a command that waits for a deck change and sends
// DeckChangedMsg.
func WatchDeckCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return DeckChangedMsg{Change: <-w.Changes()}
	}
}

// LoadDeckCmd reads the deck at path off the update loop.
func LoadDeckCmd(path string) tea.Cmd {
	return func() tea.Msg {
		d, err := story.LoadDeck(path)
		return DeckLoadedMsg{Deck: d, Err: err}
	}
}

// Prefetcher is implemented by asset loaders that can warm their cache.
type Prefetcher interface {
	Prefetch(ctx context.Context, names []string) error
}

// Forgetter is implemented by asset loaders with a cache to drop on reload.
type Forgetter interface {
	Forget()
}

// Options configures a Model.
type Options struct {
	Deck      story.Deck
	DeckPath  string // re-read on change; empty disables reload
	DeckKey   string // progress key; defaults to DeckPath, then the deck title
	Registry  *story.Registry
	Assets    story.AssetLoader
	Navigator story.Navigator
	Progress  *progress.Store
	Watcher   *watcher.Watcher
	Cells     Cells
	FPS       int
	Autoplay  time.Duration // zero disables autoplay
	Theme     *Theme
}

// session holds the state shared with core callbacks. The Model is copied on
// every Update, so anything a scheduler callback writes lives here.
type session struct {
	sched *TickScheduler
	ctl   *carousel.Controller
	deck  story.Deck

	status    string
	statusErr bool

	steps []stepEvent
	seen  map[string]int

	autoplay    bool
	autoplayGen uint64
	interval    time.Duration
}

type stepEvent struct {
	title string
	step  int
}

// Model is the carousel program.
type Model struct {
	opts  Options
	theme Theme
	keys  KeyMap
	help  help.Model
	info  InfoModel
	s     *session

	width    int
	height   int
	showInfo bool
}

// NewModel builds the cards of opts.Deck and focuses the first one.
func NewModel(opts Options) (Model, error) {
	if opts.Cells.Width <= 0 {
		opts.Cells.Width = 8
	}
	if opts.Cells.Height <= 0 {
		opts.Cells.Height = 16
	}
	if opts.DeckKey == "" {
		opts.DeckKey = opts.DeckPath
	}
	if opts.DeckKey == "" {
		opts.DeckKey = opts.Deck.Title
	}

	var theme Theme
	if opts.Theme != nil {
		theme = *opts.Theme
	} else {
		theme = DefaultTheme(lipgloss.DefaultRenderer())
	}

	s := &session{
		sched:    NewTickScheduler(opts.FPS),
		seen:     make(map[string]int),
		interval: opts.Autoplay,
	}
	m := Model{
		opts:   opts,
		theme:  theme,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		s:      s,
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.info = NewInfoModel(theme, m.width, m.stripRows())

	if err := m.install(opts.Deck, 0); err != nil {
		return Model{}, err
	}
	if opts.Autoplay > 0 {
		s.startAutoplay()
	}
	return m, nil
}

// install builds a controller for d, replacing the current one, and focuses
// card focus.
func (m *Model) install(d story.Deck, focus int) error {
	s := m.s
	env := story.Env{Scheduler: s.sched, Navigator: m.opts.Navigator, Assets: m.opts.Assets}
	cards, err := d.Build(m.opts.Registry, env)
	if err != nil {
		return err
	}
	for _, c := range cards {
		c.OnStep(func(c *story.Card, step int) {
			s.steps = append(s.steps, stepEvent{title: c.Title, step: step})
		})
	}

	if s.ctl != nil {
		s.ctl.Release()
	}
	ctl := carousel.New(cards, s.sched)
	ctl.SetMeasurer(Measurer(m.opts.Cells))
	ctl.SetErrorHandler(s.report)
	s.ctl = ctl
	s.deck = d

	m.layout()
	ctl.Focus(focus, true)
	m.info.SetMarkdown(DeckMarkdown(d, s.seen))
	return nil
}

func (m Model) stripRows() int {
	return max(1, m.height-headerRows-footerRows)
}

func (m *Model) layout() {
	c := m.opts.Cells
	m.s.ctl.Layout(float64(m.width)*c.Width, float64(m.stripRows())*c.Height)
}

// Controller returns the carousel driven by the model.
func (m Model) Controller() *carousel.Controller { return m.s.ctl }

// Scheduler returns the model's frame scheduler.
func (m Model) Scheduler() *TickScheduler { return m.s.sched }

// Deck returns the deck currently shown.
func (m Model) Deck() story.Deck { return m.s.deck }

// Status returns the status line text and whether it reports an error.
func (m Model) Status() (string, bool) { return m.s.status, m.s.statusErr }

// Autoplaying reports whether autoplay is on.
func (m Model) Autoplaying() bool { return m.s.autoplay }

// Seen returns the number of distinct steps seen for a card title.
func (m Model) Seen(title string) int { return m.s.seen[title] }

// ShowingInfo reports whether the deck info overlay is open.
func (m Model) ShowingInfo() bool { return m.showInfo }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.s.sched.Cmd(), m.drainSteps()}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchDeckCmd(m.opts.Watcher))
	}
	if m.opts.Progress != nil {
		cmds = append(cmds, m.loadProgressCmd())
	}
	if p, ok := m.opts.Assets.(Prefetcher); ok {
		cmds = append(cmds, prefetchCmd(p, m.s.deck.Illustrations()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	s := m.s

	if s.sched.Handle(msg) {
		return m, tea.Batch(s.sched.Cmd(), m.drainSteps())
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.info.SetSize(msg.Width, m.stripRows())
		m.layout()

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case DeckChangedMsg:
		switch {
		case msg.Change.Deck() && m.opts.DeckPath != "":
			cmds = append(cmds, LoadDeckCmd(m.opts.DeckPath))
		case msg.Change.Assets():
			cmds = append(cmds, m.refreshAssets())
		}
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchDeckCmd(m.opts.Watcher))
		}

	case DeckLoadedMsg:
		cmds = append(cmds, m.reload(msg))

	case prefetchDoneMsg:
		if msg.err != nil {
			s.setStatus(fmt.Sprintf("Some illustrations failed to load: %v", msg.err), true)
		} else {
			debug.Log("ui: prefetched %d illustrations", msg.count)
		}

	case progressLoadedMsg:
		if msg.err != nil {
			s.setStatus(fmt.Sprintf("Progress unavailable: %v", msg.err), true)
			break
		}
		for _, c := range msg.cards {
			s.seen[c.Title] = c.Seen
		}
		m.info.SetMarkdown(DeckMarkdown(s.deck, s.seen))

	case progressSavedMsg:
		for title, n := range msg.seen {
			s.seen[title] = n
		}
		if msg.err != nil {
			s.setStatus(fmt.Sprintf("Saving progress: %v", msg.err), true)
		}

	case progressResetMsg:
		if msg.err != nil {
			s.setStatus(fmt.Sprintf("Reset failed: %v", msg.err), true)
			break
		}
		s.seen = make(map[string]int)
		s.setStatus("Progress reset", false)
		m.info.SetMarkdown(DeckMarkdown(s.deck, s.seen))
	}

	cmds = append(cmds, s.sched.Cmd(), m.drainSteps())
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	s := m.s
	k := m.keys

	if key.Matches(msg, k.Quit) {
		return m, tea.Quit
	}
	if m.showInfo {
		switch {
		case key.Matches(msg, k.Info), msg.String() == "esc":
			m.showInfo = false
			return m, nil
		}
		var cmd tea.Cmd
		m.info, cmd = m.info.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, k.Next):
		s.ctl.Swipe(carousel.SwipeLeft)
	case key.Matches(msg, k.Prev):
		s.ctl.Swipe(carousel.SwipeRight)
	case key.Matches(msg, k.Advance):
		if card := s.ctl.FocusedCard(); card != nil {
			s.report(card.Advance())
		}
	case key.Matches(msg, k.Rewind):
		if card := s.ctl.FocusedCard(); card != nil {
			card.Rewind()
		}
	case key.Matches(msg, k.Jump):
		s.ctl.ScrollToCard(int(msg.String()[0]-'1'), true)
	case key.Matches(msg, k.Autoplay):
		if s.autoplay {
			s.stopAutoplay()
			s.setStatus("Autoplay off", false)
		} else {
			s.startAutoplay()
			s.setStatus("Autoplay every "+FormatInterval(s.interval), false)
		}
	case key.Matches(msg, k.Info):
		m.info.SetMarkdown(DeckMarkdown(s.deck, s.seen))
		m.showInfo = true
	case key.Matches(msg, k.Reset):
		if m.opts.Progress != nil {
			return m, m.resetProgressCmd()
		}
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) {
	s := m.s
	switch msg.Button {
	case tea.MouseButtonWheelDown, tea.MouseButtonWheelRight:
		if msg.Action == tea.MouseActionPress {
			s.ctl.Swipe(carousel.SwipeLeft)
		}
		return
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelLeft:
		if msg.Action == tea.MouseActionPress {
			s.ctl.Swipe(carousel.SwipeRight)
		}
		return
	case tea.MouseButtonLeft:
	default:
		return
	}
	if msg.Action != tea.MouseActionPress || m.showInfo {
		return
	}
	if msg.Y < headerRows || msg.Y >= headerRows+m.stripRows() {
		return
	}
	s.ctl.Click(m.opts.Cells.X(msg.X), msg.Alt || msg.Ctrl || msg.Shift)
}

// reload swaps in a re-read deck, keeping the focused position.
func (m *Model) reload(msg DeckLoadedMsg) tea.Cmd {
	s := m.s
	if msg.Err != nil {
		s.setStatus(fmt.Sprintf("Reload failed, keeping the previous deck: %v", msg.Err), true)
		return nil
	}
	if f, ok := m.opts.Assets.(Forgetter); ok {
		f.Forget()
	}
	focus := max(s.ctl.Focused(), 0)
	if err := m.install(msg.Deck, focus); err != nil {
		s.setStatus(fmt.Sprintf("Reload failed, keeping the previous deck: %v", err), true)
		return nil
	}
	s.setStatus(fmt.Sprintf("Reloaded %d cards", s.ctl.Len()), false)
	if p, ok := m.opts.Assets.(Prefetcher); ok {
		return prefetchCmd(p, msg.Deck.Illustrations())
	}
	return nil
}

// refreshAssets drops cached illustrations after an edit to the art alone.
// Cards keep their steps; new art shows from the next step change.
func (m *Model) refreshAssets() tea.Cmd {
	if f, ok := m.opts.Assets.(Forgetter); ok {
		f.Forget()
	}
	m.s.setStatus("Illustrations changed", false)
	if p, ok := m.opts.Assets.(Prefetcher); ok {
		return prefetchCmd(p, m.s.deck.Illustrations())
	}
	return nil
}

func (s *session) setStatus(msg string, isErr bool) {
	s.status = msg
	s.statusErr = isErr
}

// report shows a playback error. A URL that could not be opened but was
// copied is information, not a failure.
func (s *session) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, navigate.ErrCopied) {
		url := ""
		if card := s.ctl.FocusedCard(); card != nil {
			if c, ok := card.Caption(); ok {
				url = c.URL
			}
		}
		s.setStatus(fmt.Sprintf("No browser available; copied %s to the clipboard", url), false)
		return
	}
	s.setStatus(err.Error(), true)
}

func (s *session) startAutoplay() {
	if s.interval <= 0 {
		s.interval = 4 * time.Second
	}
	s.autoplay = true
	s.autoplayGen++
	s.scheduleAutoplay(s.autoplayGen)
}

func (s *session) stopAutoplay() {
	s.autoplay = false
	s.autoplayGen++
}

func (s *session) scheduleAutoplay(gen uint64) {
	s.sched.After(s.interval, func() {
		if !s.autoplay || gen != s.autoplayGen {
			return
		}
		s.autoplayStep()
		s.scheduleAutoplay(gen)
	})
}

// autoplayStep advances the focused card, moving on to the next card after
// its last step. Call-to-action steps are skipped, never opened.
func (s *session) autoplayStep() {
	card := s.ctl.FocusedCard()
	if card == nil {
		return
	}
	caption, ok := card.Caption()
	if (ok && caption.IsAction()) || card.Step() >= card.StepCount() {
		s.ctl.ScrollToCard((s.ctl.Focused()+1)%s.ctl.Len(), true)
		return
	}
	s.report(card.Advance())
}

// drainSteps turns the step changes since the last call into one command
// that records them in order.
func (m Model) drainSteps() tea.Cmd {
	s := m.s
	if len(s.steps) == 0 {
		return nil
	}
	events := s.steps
	s.steps = nil
	store := m.opts.Progress
	if store == nil {
		return nil
	}
	deck := m.opts.DeckKey
	return func() tea.Msg {
		ctx := context.Background()
		seen := make(map[string]int, len(events))
		for _, ev := range events {
			if err := store.Record(ctx, deck, ev.title, ev.step); err != nil {
				return progressSavedMsg{seen: seen, err: err}
			}
			n, err := store.Seen(ctx, deck, ev.title)
			if err != nil {
				return progressSavedMsg{seen: seen, err: err}
			}
			seen[ev.title] = n
		}
		return progressSavedMsg{seen: seen}
	}
}

func (m Model) loadProgressCmd() tea.Cmd {
	store, deck := m.opts.Progress, m.opts.DeckKey
	return func() tea.Msg {
		cards, err := store.Deck(context.Background(), deck)
		return progressLoadedMsg{cards: cards, err: err}
	}
}

func (m Model) resetProgressCmd() tea.Cmd {
	store, deck := m.opts.Progress, m.opts.DeckKey
	return func() tea.Msg {
		return progressResetMsg{err: store.Reset(context.Background(), deck)}
	}
}

func prefetchCmd(p Prefetcher, names []string) tea.Cmd {
	return func() tea.Msg {
		err := p.Prefetch(context.Background(), names)
		return prefetchDoneMsg{count: len(names), err: err}
	}
}

// View renders the header, the card strip (or the info overlay), the status
// line and the help footer.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	if m.showInfo {
		b.WriteString(fitBlock(m.info.View(), m.width, m.stripRows()))
	} else {
		b.WriteString(renderStrip(m.theme, m.s.ctl, m.opts.Cells, m.width, m.stripRows()))
	}
	b.WriteByte('\n')
	b.WriteString(fitCells(m.renderStatus(), m.width))
	b.WriteByte('\n')
	b.WriteString(fitCells(m.help.View(m.keys), m.width))
	return b.String()
}

func (m Model) renderHeader() string {
	s := m.s
	title := s.deck.Title
	if title == "" {
		title = "storyreel"
	}
	left := m.theme.Header.Render(truncateRunesHelper(title, max(1, m.width/2), "…"))

	var right []string
	if s.autoplay {
		right = append(right, "▶ autoplay")
	}
	if card := s.ctl.FocusedCard(); card != nil {
		right = append(right, fmt.Sprintf("card %d/%d", s.ctl.Focused()+1, s.ctl.Len()))
	}
	r := m.theme.MutedText.Render(strings.Join(right, "  "))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(r)
	if gap < 1 {
		return fitCells(left, m.width)
	}
	return left + strings.Repeat(" ", gap) + r
}

func (m Model) renderStatus() string {
	s := m.s
	if s.status != "" {
		if s.statusErr {
			return m.theme.StatusError.Render(s.status)
		}
		return m.theme.StatusInfo.Render(s.status)
	}
	card := s.ctl.FocusedCard()
	if card == nil || m.opts.Progress == nil {
		return ""
	}
	total := card.StepCount()
	seen := min(s.seen[card.Title], total)
	return RenderProgressBar(m.theme, float64(seen)/float64(max(total, 1)), 10) +
		m.theme.MutedText.Render(fmt.Sprintf(" %d/%d steps seen", seen, total))
}

// fitBlock pads or crops a multi-line block to exactly cols x rows.
func fitBlock(s string, cols, rows int) string {
	lines := strings.Split(s, "\n")
	out := make([]string, rows)
	for i := range out {
		l := ""
		if i < len(lines) {
			l = lines[i]
		}
		out[i] = fitCells(l, cols)
	}
	return strings.Join(out, "\n")
}
