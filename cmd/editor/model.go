package main

import (
	"fmt"
	"strings"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/alan-christopher/qkdchan/chandist/freqcor"
	"github.com/alan-christopher/qkdchan/chandist/grid"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	axisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B4B4B4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

var (
	diagonalRGB = [3]uint8{0, 115, 145}
	selectedRGB = [3]uint8{50, 115, 25}

	// Cells bordering the measured window.
	windowEdgeColor = lipgloss.Color("#FF0000")
)

const windowEdgeFill = "."

const (
	minCellWidth = 2
	maxCellWidth = 6
	labelWidth   = 4
	// title, column labels, status, message, help
	chromeLines = 6
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Anchor   key.Binding
	Toggle   key.Binding
	Peak     key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Save     key.Binding
	Quit     key.Binding
	Discard  key.Binding
	ShowHelp key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "right"),
	),
	Anchor: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "anchor diagonal"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "select pair"),
	),
	Peak: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "anchor at peak"),
	),
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "zoom out"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "save & quit"),
	),
	Discard: key.NewBinding(
		key.WithKeys("Q"),
		key.WithHelp("Q", "quit without saving"),
	),
	ShowHelp: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Anchor, k.Toggle, k.Save, k.Quit, k.ShowHelp}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Anchor, k.Toggle, k.Peak},
		{k.ZoomIn, k.ZoomOut},
		{k.Save, k.Quit, k.Discard, k.ShowHelp},
	}
}

// matrixMsg delivers a reloaded correlation matrix.
type matrixMsg struct {
	matrix *freqcor.Matrix
	err    error
}

type model struct {
	ed     *grid.Editor
	matrix *freqcor.Matrix
	save   func(*grid.Editor) error
	logger *zap.Logger

	keys keyMap
	help help.Model

	row, col   int // cursor
	offRow     int // first visible row
	offCol     int // first visible column
	cellWidth  int
	width      int
	height     int
	message    string
	messageErr bool
}

func newModel(ed *grid.Editor, m *freqcor.Matrix, save func(*grid.Editor) error, logger *zap.Logger) model {
	mod := model{
		ed:        ed,
		matrix:    m,
		save:      save,
		logger:    logger,
		keys:      keys,
		help:      help.New(),
		cellWidth: 4,
	}
	if d, ok := ed.Diagonal(); ok {
		mod.row, mod.col = d.Row, d.Col
	} else if p, ok := m.Peak(); ok && ed.InGrid(p.Row, p.Col) {
		mod.row, mod.col = p.Row, p.Col
	}
	if n := len(ed.Dropped()); n > 0 {
		mod.setMessage(fmt.Sprintf("%d saved pairs were off the diagonal and will not be saved again", n), true)
	}
	return mod
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()

	case matrixMsg:
		if msg.err != nil {
			m.logger.Warn("Reloading correlation matrix", zap.Error(msg.err))
			m.setMessage(fmt.Sprintf("Matrix reload failed: %v", msg.err), true)
			break
		}
		m.matrix = msg.matrix
		m.setMessage("Correlation matrix reloaded", false)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.ed.Catalog().Len()
	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.save(m.ed); err != nil {
			m.logger.Error("Saving on quit", zap.Error(err))
			m.setMessage(fmt.Sprintf("Save failed: %v (Q quits without saving)", err), true)
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Discard):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Save):
		if err := m.save(m.ed); err != nil {
			m.logger.Error("Saving", zap.Error(err))
			m.setMessage(fmt.Sprintf("Save failed: %v", err), true)
		} else {
			m.setMessage("Settings saved", false)
		}

	case key.Matches(msg, m.keys.Up):
		m.row = clamp(m.row-1, 0, n-1)
	case key.Matches(msg, m.keys.Down):
		m.row = clamp(m.row+1, 0, n-1)
	case key.Matches(msg, m.keys.Left):
		m.col = clamp(m.col-1, 0, n-1)
	case key.Matches(msg, m.keys.Right):
		m.col = clamp(m.col+1, 0, n-1)

	case key.Matches(msg, m.keys.Anchor):
		m.anchor(m.row, m.col)

	case key.Matches(msg, m.keys.Peak):
		p, ok := m.matrix.Peak()
		if !ok || !m.ed.InGrid(p.Row, p.Col) {
			m.setMessage("No correlation matrix loaded", true)
			break
		}
		m.row, m.col = p.Row, p.Col
		m.anchor(p.Row, p.Col)

	case key.Matches(msg, m.keys.Toggle):
		if !m.ed.Toggle(m.row, m.col) {
			m.setMessage("Only cells on the anchored diagonal can be selected", true)
			break
		}
		sel := len(m.ed.Selections())
		want := len(m.ed.Combinations())
		m.setMessage(fmt.Sprintf("%d of %d links have a channel pair", min(sel, want), want), false)

	case key.Matches(msg, m.keys.ZoomIn):
		m.cellWidth = clamp(m.cellWidth+1, minCellWidth, maxCellWidth)
	case key.Matches(msg, m.keys.ZoomOut):
		m.cellWidth = clamp(m.cellWidth-1, minCellWidth, maxCellWidth)

	case key.Matches(msg, m.keys.ShowHelp):
		m.help.ShowAll = !m.help.ShowAll
	}
	m.scroll()
	return m, nil
}

func (m *model) anchor(row, col int) {
	cat := m.ed.Catalog()
	if m.ed.SetDiagonal(row, col) {
		m.logger.Debug("Diagonal anchored", zap.Int("row", row), zap.Int("col", col))
		m.setMessage(fmt.Sprintf("Diagonal anchored at %s × %s", cat.Label(row), cat.Label(col)), false)
	}
}

func (m *model) setMessage(s string, isErr bool) {
	m.message = s
	m.messageErr = isErr
}

// visible returns how many grid rows and columns fit on screen.
func (m model) visible() (rows, cols int) {
	n := m.ed.Catalog().Len()
	rows, cols = n, n
	if m.height > 0 {
		rows = clamp(m.height-chromeLines, 1, n)
	}
	if m.width > 0 {
		cols = clamp((m.width-labelWidth)/m.cellWidth, 1, n)
	}
	return rows, cols
}

// scroll moves the viewport so the cursor stays visible.
func (m *model) scroll() {
	rows, cols := m.visible()
	if m.row < m.offRow {
		m.offRow = m.row
	}
	if m.row >= m.offRow+rows {
		m.offRow = m.row - rows + 1
	}
	if m.col < m.offCol {
		m.offCol = m.col
	}
	if m.col >= m.offCol+cols {
		m.offCol = m.col - cols + 1
	}
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	cat := m.ed.Catalog()
	rows, cols := m.visible()

	var s strings.Builder
	s.WriteString(titleStyle.Render("Channel Distributor for Quantum Key Distribution"))
	s.WriteString(axisStyle.Render("  rows: signal photon channels, columns: idler photon channels"))
	s.WriteString("\n")

	s.WriteString(strings.Repeat(" ", labelWidth))
	for j := m.offCol; j < m.offCol+cols && j < cat.Len(); j++ {
		s.WriteString(axisStyle.Render(fit(cat.Label(j), m.cellWidth)))
	}
	s.WriteString("\n")

	conns := m.ed.Connections()
	for i := m.offRow; i < m.offRow+rows && i < cat.Len(); i++ {
		s.WriteString(axisStyle.Render(fit(cat.Label(i), labelWidth)))
		for j := m.offCol; j < m.offCol+cols && j < cat.Len(); j++ {
			s.WriteString(m.renderCell(i, j, conns))
		}
		s.WriteString("\n")
	}

	s.WriteString(statusStyle.Render(m.status()))
	s.WriteString("\n")
	if m.message != "" {
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return s.String()
}

func (m model) renderCell(i, j int, conns map[chandist.Selection]chandist.Combination) string {
	bg := [3]uint8{}
	shade := 1.0
	if g, ok := m.matrix.GreyAt(i, j); ok {
		bg = [3]uint8{g, g, g}
		shade = freqcor.Shade(g)
	}
	if m.ed.OnDiagonal(i, j) {
		c := diagonalRGB
		if m.ed.Selected(i, j) {
			c = selectedRGB
		}
		bg = [3]uint8{scale(c[0], shade), scale(c[1], shade), scale(c[2], shade)}
	}
	st := lipgloss.NewStyle().Background(lipgloss.Color(hex(bg)))
	if bg[0] > 127 {
		st = st.Foreground(lipgloss.Color("#000000"))
	} else {
		st = st.Foreground(lipgloss.Color("#FFFFFF"))
	}
	edge := m.matrix.OnEdge(i, j)
	if edge {
		st = st.Foreground(windowEdgeColor).Bold(true)
	}
	if i == m.row && j == m.col {
		st = st.Reverse(true)
	}
	label := ""
	if c, ok := conns[chandist.Selection{Row: i, Col: j}]; ok {
		label = c.String()
	} else if edge {
		label = strings.Repeat(windowEdgeFill, m.cellWidth)
	}
	return st.Render(fit(label, m.cellWidth))
}

func (m model) status() string {
	cat := m.ed.Catalog()
	parts := []string{fmt.Sprintf("%s × %s", cat.Label(m.row), cat.Label(m.col))}
	if v, ok := m.matrix.At(m.row, m.col); ok {
		parts = append(parts, fmt.Sprintf("count %.0f", v))
	}
	if d, ok := m.ed.Diagonal(); ok {
		parts = append(parts, fmt.Sprintf("diagonal %s × %s", cat.Label(d.Row), cat.Label(d.Col)))
	} else {
		parts = append(parts, "no diagonal")
	}
	parts = append(parts, fmt.Sprintf("selected %d/%d", len(m.ed.Selections()), len(m.ed.Combinations())))
	parts = append(parts, fmt.Sprintf("%d nodes", m.ed.Nodes()))
	return strings.Join(parts, " • ")
}

// fit pads or truncates s to exactly w columns.
func fit(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	return s + strings.Repeat(" ", w-len(s))
}

func scale(c uint8, f float64) uint8 {
	return uint8(float64(c) * f)
}

func hex(c [3]uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", c[0], c[1], c[2])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
