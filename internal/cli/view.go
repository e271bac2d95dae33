package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ontograph/pkg/config"
	"github.com/matzehuels/ontograph/pkg/export"
	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/render"
	"github.com/matzehuels/ontograph/pkg/render/term"
	"github.com/matzehuels/ontograph/pkg/session"
	"github.com/matzehuels/ontograph/pkg/source/file"
)

const (
	// statusRows is the number of terminal rows below the graph.
	statusRows = 3

	// panCells is how far one arrow key pans, in cells.
	panCells = 4

	// Terminal size assumed until the first resize message.
	defaultCols = 80
	defaultRows = 24
)

// viewOpts holds the command-line flags for the view command.
type viewOpts struct {
	watch      bool
	mongo      bool
	exportPath string
	logFile    string
}

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var opts viewOpts

	cmd := &cobra.Command{
		Use:   "view [snapshot]",
		Short: "Explore a snapshot's graph in the terminal",
		Long: `Explore a snapshot's graph in the terminal.

The graph settles live, one simulation step per frame.

Keys:
  arrows      pan
  + / -       zoom in / out
  0           reset zoom and pan
  e           export the current view as PNG
  q           quit

Mouse: click a node to select it, drag to pan, scroll to zoom.

With --watch the snapshot file is reloaded whenever it changes on disk.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSnapshot,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.watch && opts.mongo {
				return fmt.Errorf("--watch cannot be combined with --mongo")
			}
			return c.runView(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the snapshot when the file changes")
	cmd.Flags().BoolVar(&opts.mongo, "mongo", false, "load the snapshot by name from the configured MongoDB collection")
	cmd.Flags().StringVarP(&opts.exportPath, "export", "e", export.DefaultFilename, "file written by the export key")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file while the viewer runs")

	return cmd
}

// runView loads the snapshot and runs the viewer until the user quits.
func (c *CLI) runView(ctx context.Context, input string, opts viewOpts) error {
	logger, closeLog, err := c.viewLogger(opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	var (
		snap    *ontology.Snapshot
		watcher *file.Watcher
	)
	switch {
	case opts.mongo:
		src, err := c.openMongo(ctx)
		if err != nil {
			return err
		}
		snap, err = src.Load(ctx, input)
		src.Close(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
	case opts.watch:
		watcher = file.NewWatcher(input, file.WithLogger(logger))
		if snap, err = watcher.Load(); err != nil {
			return err
		}
	default:
		if snap, err = ontology.ReadFile(input); err != nil {
			return err
		}
	}

	m := newViewModel(c.config, logger, opts.exportPath)
	m.name = snapshotTitle(input, snap)
	m.sess.SetSnapshot(snap)

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if watcher != nil {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := watcher.Run(wctx, func(s *ontology.Snapshot) { prog.Send(snapshotMsg{snap: s}) })
			if err != nil {
				logger.Warn("watch stopped", "err", err)
			}
		}()
	}

	_, err = prog.Run()
	m.sess.Close()
	return err
}

// viewLogger returns a logger that does not write over the viewer.
func (c *CLI) viewLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return newLogger(io.Discard, c.Logger.GetLevel()), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return newLogger(f, c.Logger.GetLevel()), func() { f.Close() }, nil
}

func snapshotTitle(input string, snap *ontology.Snapshot) string {
	if snap != nil && snap.Name != "" {
		return snap.Name
	}
	return filepath.Base(input)
}

// =============================================================================
// Key Bindings
// =============================================================================

// viewKeyMap defines the viewer's keyboard shortcuts.
type viewKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Reset   key.Binding
	Export  key.Binding
	Quit    key.Binding
}

var viewKeys = viewKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "pan"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "pan"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "pan"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "pan"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	Reset: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "reset"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export png"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k viewKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Up, k.ZoomIn, k.ZoomOut, k.Reset, k.Export, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k viewKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.Export, k.Quit},
	}
}

// =============================================================================
// Model
// =============================================================================

type (
	tickMsg     time.Time
	snapshotMsg struct{ snap *ontology.Snapshot }
)

// viewModel is the bubbletea model of the viewer. The session, its frame
// queue and the screen are only touched from Update, which bubbletea runs
// on a single goroutine.
type viewModel struct {
	sess       *session.Session
	queue      *session.FrameQueue
	screen     *term.Screen
	help       help.Model
	period     time.Duration
	exportPath string
	name       string
	status     string
}

func newViewModel(cfg config.Config, logger *log.Logger, exportPath string) *viewModel {
	cols, rows := defaultCols, defaultRows-statusRows
	m := &viewModel{
		queue:      session.NewFrameQueue(),
		screen:     term.NewScreen(cols, rows),
		help:       help.New(),
		period:     time.Second / time.Duration(max(cfg.Server.FrameRate, 1)),
		exportPath: exportPath,
	}
	m.sess = session.New(m.queue, m.screen,
		float64(cols)*term.CellWidth, float64(rows)*term.CellHeight,
		session.WithLogger(logger),
		session.WithForceConfig(cfg.Simulation),
		session.WithClickSlop(cfg.View.ClickSlop),
		session.WithSelector(ontology.SelectorFunc(func(id string) {
			m.status = "class " + id
		})),
	)
	return m
}

func (m *viewModel) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m *viewModel) Init() tea.Cmd { return m.tick() }

// Update implements tea.Model.
func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		m.queue.Flush()
		return m, m.tick()
	case snapshotMsg:
		if m.sess.SetSnapshot(msg.snap) {
			m.name = snapshotTitle(m.name, msg.snap)
			m.status = "reloaded"
		}
	case tea.KeyMsg:
		return m, m.key(msg)
	case tea.MouseMsg:
		m.mouse(msg)
	}
	return m, nil
}

func (m *viewModel) resize(width, height int) {
	cols, rows := max(width, 1), max(height-statusRows, 1)
	m.screen.Resize(cols, rows)
	m.help.Width = cols
	m.sess.Resize(float64(cols)*term.CellWidth, float64(rows)*term.CellHeight)
}

func (m *viewModel) key(msg tea.KeyMsg) tea.Cmd {
	const dx, dy = panCells * term.CellWidth, panCells / 2 * term.CellHeight
	switch {
	case key.Matches(msg, viewKeys.Quit):
		return tea.Quit
	case key.Matches(msg, viewKeys.ZoomIn):
		m.sess.ZoomIn()
	case key.Matches(msg, viewKeys.ZoomOut):
		m.sess.ZoomOut()
	case key.Matches(msg, viewKeys.Reset):
		m.sess.ResetView()
	case key.Matches(msg, viewKeys.Up):
		m.sess.Pan(geom.V(0, dy))
	case key.Matches(msg, viewKeys.Down):
		m.sess.Pan(geom.V(0, -dy))
	case key.Matches(msg, viewKeys.Left):
		m.sess.Pan(geom.V(dx, 0))
	case key.Matches(msg, viewKeys.Right):
		m.sess.Pan(geom.V(-dx, 0))
	case key.Matches(msg, viewKeys.Export):
		path, err := m.sess.ExportFile(m.exportPath)
		if err != nil {
			m.status = "export failed: " + err.Error()
		} else {
			m.status = "exported " + path
		}
	}
	return nil
}

func (m *viewModel) mouse(msg tea.MouseMsg) {
	p := term.CellCenter(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.sess.Wheel(-1)
	case msg.Button == tea.MouseButtonWheelDown:
		m.sess.Wheel(1)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if _, rows := m.screen.Dims(); msg.Y < rows {
			m.sess.PointerDown(p)
		}
	case msg.Action == tea.MouseActionMotion:
		m.sess.PointerMove(p)
	case msg.Action == tea.MouseActionRelease:
		m.sess.PointerUp(p)
	}
}

// View implements tea.Model.
func (m *viewModel) View() string {
	return strings.Join([]string{m.screen.String(), m.statusLine(), legendLine(), m.help.View(viewKeys)}, "\n")
}

func (m *viewModel) statusLine() string {
	parts := []string{StyleTitle.Render(m.name), render.ZoomReadout(m.sess.Viewport().Zoom())}
	if sel := render.SelectionReadout(m.sess.Selected()); sel != "" {
		parts = append(parts, StyleHighlight.Render(sel))
	}
	if !m.sess.Settled() {
		parts = append(parts, fmt.Sprintf("settling %d", m.sess.Steps()))
	}
	if m.status != "" {
		parts = append(parts, StyleDim.Render(m.status))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

func legendLine() string {
	var b strings.Builder
	for i, e := range render.Legend() {
		if i > 0 {
			b.WriteString("  ")
		}
		mark := "●"
		if e.Edge {
			mark = "─"
			if len(e.Dash) > 0 {
				mark = "┄"
			}
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(e.Color))).Render(mark))
		b.WriteString(" " + StyleDim.Render(e.Label))
	}
	return b.String()
}

