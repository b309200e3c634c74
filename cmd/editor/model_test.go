package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/alan-christopher/qkdchan/chandist/freqcor"
	"github.com/alan-christopher/qkdchan/chandist/grid"
	"github.com/alan-christopher/qkdchan/chandist/settings"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The peak, 1000, sits at grid cell (3, 6).
const sampleMatrix = "C15,H16\n" +
	"0\t10\t20\n" +
	"30\t1000\t40\n"

type saver struct {
	calls int
	err   error
}

func (s *saver) save(*grid.Editor) error {
	s.calls++
	return s.err
}

func testModel(t *testing.T, sv *saver) model {
	t.Helper()
	cat := chandist.DefaultCatalog()
	m, err := freqcor.Read(strings.NewReader(sampleMatrix), cat)
	require.NoError(t, err)
	ed := grid.New(cat, 3, chandist.Combinations(chandist.NodeLabels(3)))
	mod := newModel(ed, m, sv.save, zap.NewNop())
	return update(t, mod, tea.WindowSizeMsg{Width: 240, Height: 60})
}

func update(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewBeforeResize(t *testing.T) {
	ed := grid.New(chandist.DefaultCatalog(), 2, chandist.Combinations(chandist.NodeLabels(2)))
	m := newModel(ed, nil, (&saver{}).save, zap.NewNop())
	assert.Equal(t, "Initializing...", m.View())
}

func TestDroppedSelectionsReported(t *testing.T) {
	s := &settings.Settings{
		Nodes:    2,
		Diagonal: &chandist.Selection{Row: 10, Col: 10},
		Selected: []chandist.Selection{{Row: 9, Col: 11}, {Row: 9, Col: 12}, {Row: 60, Col: 0}},
	}
	ed := grid.FromSettings(chandist.DefaultCatalog(), s, chandist.Combinations(chandist.NodeLabels(2)))
	m := newModel(ed, nil, (&saver{}).save, zap.NewNop())
	assert.True(t, m.messageErr)
	assert.Contains(t, m.message, "2 saved pairs")
	assert.Equal(t, 10, m.row)
	assert.Equal(t, 10, m.col)
}

func TestCursorStartsAtPeak(t *testing.T) {
	m := testModel(t, &saver{})
	assert.Equal(t, 3, m.row)
	assert.Equal(t, 6, m.col)
}

func TestAnchorAndSelect(t *testing.T) {
	m := testModel(t, &saver{})
	m = update(t, m, runes("p"))
	d, ok := m.ed.Diagonal()
	require.True(t, ok)
	assert.Equal(t, chandist.Selection{Row: 3, Col: 6}, d)

	// Toggle the anchor, then step along the diagonal and toggle twice more.
	m = update(t, m,
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
		tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyLeft},
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
		runes("j"), runes("h"),
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}},
	)
	assert.Equal(t, []chandist.Selection{{Row: 5, Col: 4}, {Row: 4, Col: 5}, {Row: 3, Col: 6}}, m.ed.Selections())
	assert.True(t, m.ed.Complete())
	assert.False(t, m.messageErr)
	assert.Contains(t, m.View(), "AB")
	assert.Contains(t, m.View(), "selected 3/3")
}

func TestToggleOffDiagonal(t *testing.T) {
	m := testModel(t, &saver{})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("l"), runes(" "))
	assert.Empty(t, m.ed.Selections())
	assert.True(t, m.messageErr)
}

func TestAnchorClearsSelections(t *testing.T) {
	m := testModel(t, &saver{})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes(" "))
	require.Len(t, m.ed.Selections(), 1)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.ed.Selections())
	d, _ := m.ed.Diagonal()
	assert.Equal(t, chandist.Selection{Row: 2, Col: 6}, d)
}

func TestMatrixWindowOutlined(t *testing.T) {
	m := testModel(t, &saver{})
	// The sample window spans rows 2..3 and columns 5..7.
	tcs := []struct {
		name     string
		row, col int
		eedge    bool
	}{
		{"window corner", 2, 5, true},
		{"window cell", 3, 6, true},
		{"outside", 1, 5, false},
		{"far away", 30, 30, false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := strings.Contains(m.renderCell(tc.row, tc.col, nil), windowEdgeFill)
			assert.Equal(t, tc.eedge, got)
		})
	}

	// Link labels take precedence over the outline.
	conns := map[chandist.Selection]chandist.Combination{{Row: 2, Col: 5}: {A: "A", B: "B"}}
	assert.Contains(t, m.renderCell(2, 5, conns), "AB")
	assert.NotContains(t, m.renderCell(2, 5, conns), windowEdgeFill)
}

func TestCursorClamped(t *testing.T) {
	m := testModel(t, &saver{})
	n := m.ed.Catalog().Len()
	for i := 0; i < n+5; i++ {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyUp})
	}
	assert.Equal(t, 0, m.row)
	assert.Equal(t, n-1, m.col)
}

func TestZoom(t *testing.T) {
	m := testModel(t, &saver{})
	for i := 0; i < 10; i++ {
		m = update(t, m, runes("+"))
	}
	assert.Equal(t, maxCellWidth, m.cellWidth)
	for i := 0; i < 10; i++ {
		m = update(t, m, runes("-"))
	}
	assert.Equal(t, minCellWidth, m.cellWidth)
}

func TestScrollFollowsCursor(t *testing.T) {
	m := testModel(t, &saver{})
	m = update(t, m, tea.WindowSizeMsg{Width: labelWidth + 5*m.cellWidth, Height: chromeLines + 5})
	n := m.ed.Catalog().Len()
	for i := 0; i < n; i++ {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyRight})
	}
	rows, cols := m.visible()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 5, cols)
	assert.Equal(t, n-5, m.offRow)
	assert.Equal(t, n-5, m.offCol)
}

func TestSaveAndQuit(t *testing.T) {
	sv := &saver{}
	m := testModel(t, sv)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(model)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, sv.calls)

	_, cmd = m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 2, sv.calls)
}

func TestQuitBlockedBySaveFailure(t *testing.T) {
	sv := &saver{err: errors.New("disk full")}
	m := testModel(t, sv)

	next, cmd := m.Update(runes("q"))
	m = next.(model)
	assert.Nil(t, cmd)
	assert.True(t, m.messageErr)
	assert.Contains(t, m.message, "disk full")

	_, cmd = m.Update(runes("Q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, sv.calls)
}

func TestMatrixReload(t *testing.T) {
	m := testModel(t, &saver{})
	m = update(t, m, matrixMsg{err: errors.New("truncated")})
	assert.True(t, m.messageErr)
	assert.NotNil(t, m.matrix)

	m = update(t, m, matrixMsg{})
	assert.False(t, m.messageErr)
	assert.Nil(t, m.matrix)
	_, ok := m.matrix.Peak()
	assert.False(t, ok)
	assert.NotEmpty(t, m.View())
}

func TestMatrixWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freq_cor_latest.txt")
	msgs := make(chan tea.Msg, 4)
	w, err := newMatrixWatcher(path, chandist.DefaultCatalog(), func(msg tea.Msg) { msgs <- msg }, zap.NewNop())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.run(ctx)

	require.NoError(t, os.WriteFile(path, []byte(sampleMatrix), 0o644))

	select {
	case msg := <-msgs:
		mm, ok := msg.(matrixMsg)
		require.True(t, ok)
		require.NoError(t, mm.err)
		p, ok := mm.matrix.Peak()
		require.True(t, ok)
		assert.Equal(t, chandist.Selection{Row: 3, Col: 6}, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing the matrix")
	}
}
