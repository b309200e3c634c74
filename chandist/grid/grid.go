// Package grid holds the state of the channel grid editor, independent of how
// it is drawn.
//
// Rows of the grid are signal channels and columns are idler channels, both
// indexed by the catalog. The operator anchors a diagonal (the cells with a
// constant row+col, i.e. pairs with a constant summed frequency) and toggles
// cells on it to select the channel pairs that will serve the network links.
package grid

import (
	"sort"

	"github.com/alan-christopher/qkdchan/chandist"
	"github.com/alan-christopher/qkdchan/chandist/settings"
)

// An Editor tracks the anchored diagonal and the selected cells on it.
type Editor struct {
	cat      chandist.Catalog
	nodes    int
	combos   []chandist.Combination
	diagonal *chandist.Selection
	selected map[chandist.Selection]bool
	dropped  []chandist.Selection
}

// New returns an Editor for an n-node network whose links are combos.
func New(cat chandist.Catalog, nodes int, combos []chandist.Combination) *Editor {
	return &Editor{
		cat:      cat,
		nodes:    nodes,
		combos:   append([]chandist.Combination(nil), combos...),
		selected: make(map[chandist.Selection]bool),
	}
}

// FromSettings restores an Editor from persisted settings. Cells outside the
// catalog or off the saved diagonal are dropped and reported by Dropped.
func FromSettings(cat chandist.Catalog, s *settings.Settings, combos []chandist.Combination) *Editor {
	e := New(cat, s.Nodes, combos)
	if s.Diagonal != nil && e.InGrid(s.Diagonal.Row, s.Diagonal.Col) {
		d := *s.Diagonal
		e.diagonal = &d
	}
	for _, sel := range s.Selected {
		if e.InGrid(sel.Row, sel.Col) && e.OnDiagonal(sel.Row, sel.Col) {
			e.selected[sel] = true
		} else {
			e.dropped = append(e.dropped, sel)
		}
	}
	return e
}

// Dropped returns the saved selections FromSettings could not restore, in file
// order. They are not written back by Settings.
func (e *Editor) Dropped() []chandist.Selection {
	return append([]chandist.Selection(nil), e.dropped...)
}

// Catalog returns the catalog the grid is laid out over.
func (e *Editor) Catalog() chandist.Catalog {
	return e.cat
}

// Nodes returns the network size.
func (e *Editor) Nodes() int {
	return e.nodes
}

// Combinations returns the network links, in the order selections serve them.
func (e *Editor) Combinations() []chandist.Combination {
	return append([]chandist.Combination(nil), e.combos...)
}

// InGrid returns true iff (row, col) is a cell of the grid.
func (e *Editor) InGrid(row, col int) bool {
	return e.cat.Contains(row) && e.cat.Contains(col)
}

// Diagonal returns the anchor cell, if any.
func (e *Editor) Diagonal() (chandist.Selection, bool) {
	if e.diagonal == nil {
		return chandist.Selection{}, false
	}
	return *e.diagonal, true
}

// SetDiagonal anchors the diagonal through (row, col), clearing every
// selection. It returns false if the cell is outside the grid.
func (e *Editor) SetDiagonal(row, col int) bool {
	if !e.InGrid(row, col) {
		return false
	}
	e.diagonal = &chandist.Selection{Row: row, Col: col}
	e.selected = make(map[chandist.Selection]bool)
	return true
}

// OnDiagonal returns true iff (row, col) lies on the anchored diagonal.
func (e *Editor) OnDiagonal(row, col int) bool {
	if e.diagonal == nil {
		return false
	}
	return row+col == e.diagonal.Row+e.diagonal.Col
}

// Toggle flips the selection of cell (row, col). Only cells on the anchored
// diagonal can be toggled; it returns false for any other cell.
func (e *Editor) Toggle(row, col int) bool {
	if !e.InGrid(row, col) || !e.OnDiagonal(row, col) {
		return false
	}
	c := chandist.Selection{Row: row, Col: col}
	if e.selected[c] {
		delete(e.selected, c)
	} else {
		e.selected[c] = true
	}
	return true
}

// Selected returns true iff cell (row, col) is selected.
func (e *Editor) Selected(row, col int) bool {
	return e.selected[chandist.Selection{Row: row, Col: col}]
}

// Selections returns the selected cells in ascending column order, which is
// the order in which they serve the combinations.
func (e *Editor) Selections() []chandist.Selection {
	r := make([]chandist.Selection, 0, len(e.selected))
	for c := range e.selected {
		r = append(r, c)
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].Col != r[j].Col {
			return r[i].Col < r[j].Col
		}
		return r[i].Row < r[j].Row
	})
	return r
}

// Complete returns true once there is a selection for every combination.
func (e *Editor) Complete() bool {
	return len(e.combos) > 0 && len(e.selected) >= len(e.combos)
}

// Connections maps each selected cell to the combination it serves. It
// returns nil until the selection is complete.
func (e *Editor) Connections() map[chandist.Selection]chandist.Combination {
	if !e.Complete() {
		return nil
	}
	r := make(map[chandist.Selection]chandist.Combination)
	for i, c := range e.Selections() {
		if i >= len(e.combos) {
			break
		}
		r[c] = e.combos[i]
	}
	return r
}

// Label returns the combination served by cell (row, col), or "".
func (e *Editor) Label(row, col int) string {
	c, ok := e.Connections()[chandist.Selection{Row: row, Col: col}]
	if !ok {
		return ""
	}
	return c.String()
}

// Settings snapshots the editor for persisting.
func (e *Editor) Settings() *settings.Settings {
	s := &settings.Settings{Nodes: e.nodes, Selected: e.Selections()}
	if d, ok := e.Diagonal(); ok {
		s.Diagonal = &d
	}
	return s
}
