// Package freqcor handles measured frequency-correlation matrices, i.e. photon
// coincidence counts between signal and idler channels.
//
// A matrix file starts with a line naming the catalog labels of the channels
// at its top left corner, e.g. "C20,H21", followed by rows of tab-separated
// counts. The matrix covers a window of the full channel grid starting at that
// corner.
package freqcor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alan-christopher/qkdchan/chandist"
	"gonum.org/v1/gonum/mat"
)

// Counts below this fraction of the observed range render as black.
const noiseFloor = 0.005

// A Matrix is a window of coincidence counts placed within the channel grid.
type Matrix struct {
	// Corner gives the grid row and column of Data's first element.
	Corner chandist.Selection
	Data   *mat.Dense

	min, max float64
}

// New places data within the channel grid at corner.
func New(corner chandist.Selection, data *mat.Dense) *Matrix {
	return &Matrix{
		Corner: corner,
		Data:   data,
		min:    mat.Min(data),
		max:    mat.Max(data),
	}
}

// Read parses a matrix file from r, resolving its corner labels against cat.
func Read(r io.Reader, cat chandist.Catalog) (*Matrix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("empty matrix file")
	}
	corner, err := parseCorner(sc.Text(), cat)
	if err != nil {
		return nil, fmt.Errorf("line 1: %w", err)
	}

	var vals []float64
	rows, cols := 0, 0
	for line := 2; sc.Scan(); line++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if cols == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("line %d: got %d columns, want %d", line, len(fields), cols)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			vals = append(vals, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, errors.New("matrix has no rows")
	}
	return New(corner, mat.NewDense(rows, cols, vals)), nil
}

// Load reads the matrix file at path. A missing file yields a nil Matrix and
// no error; every method of Matrix accepts a nil receiver.
func Load(path string, cat chandist.Catalog) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	m, err := Read(f, cat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func parseCorner(line string, cat chandist.Catalog) (chandist.Selection, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 2 {
		return chandist.Selection{}, fmt.Errorf("invalid corner %q", line)
	}
	row, ok := cat.Index(strings.TrimSpace(parts[0]))
	if !ok {
		return chandist.Selection{}, fmt.Errorf("unknown corner channel %q", parts[0])
	}
	col, ok := cat.Index(strings.TrimSpace(parts[1]))
	if !ok {
		return chandist.Selection{}, fmt.Errorf("unknown corner channel %q", parts[1])
	}
	return chandist.Selection{Row: row, Col: col}, nil
}

// Dims returns the size of the window covered by m.
func (m *Matrix) Dims() (rows, cols int) {
	if m == nil || m.Data == nil {
		return 0, 0
	}
	return m.Data.Dims()
}

// Contains returns true iff the grid cell (row, col) falls within m.
func (m *Matrix) Contains(row, col int) bool {
	r, c := m.Dims()
	i, j := row-m.cornerRow(), col-m.cornerCol()
	return i >= 0 && i < r && j >= 0 && j < c
}

// OnEdge returns true iff (row, col) is a cell of m on the border of its
// window.
func (m *Matrix) OnEdge(row, col int) bool {
	if !m.Contains(row, col) {
		return false
	}
	return !m.Contains(row-1, col) || !m.Contains(row+1, col) ||
		!m.Contains(row, col-1) || !m.Contains(row, col+1)
}

// At returns the count at grid cell (row, col), if m covers it.
func (m *Matrix) At(row, col int) (float64, bool) {
	if !m.Contains(row, col) {
		return 0, false
	}
	return m.Data.At(row-m.Corner.Row, col-m.Corner.Col), true
}

// Range returns the smallest and largest counts in m.
func (m *Matrix) Range() (min, max float64) {
	if m == nil {
		return 0, 0
	}
	return m.min, m.max
}

// Grey scales v to a grey level in [0, 255] relative to the range of m.
// Counts within the noise floor of the minimum map to 0.
func (m *Matrix) Grey(v float64) uint8 {
	lo, hi := m.Range()
	span := hi - lo
	if span <= 0 || v < lo+noiseFloor*span {
		return 0
	}
	if v >= hi {
		return 255
	}
	return uint8(255 * (v - lo) / span)
}

// GreyAt returns the grey level of grid cell (row, col), if m covers it.
func (m *Matrix) GreyAt(row, col int) (uint8, bool) {
	v, ok := m.At(row, col)
	if !ok {
		return 0, false
	}
	return m.Grey(v), true
}

// Peak returns the grid cell holding the highest count in m. Windows that
// overhang the channel grid may yield a cell outside it.
func (m *Matrix) Peak() (chandist.Selection, bool) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return chandist.Selection{}, false
	}
	best := chandist.Selection{Row: m.Corner.Row, Col: m.Corner.Col}
	bv := m.Data.At(0, 0)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.Data.At(i, j); v > bv {
				bv = v
				best = chandist.Selection{Row: m.Corner.Row + i, Col: m.Corner.Col + j}
			}
		}
	}
	return best, true
}

// Shade returns the factor by which highlight colours are dimmed over a cell
// of grey level g. Dark cells dim highlights to at most 150/255.
func Shade(g uint8) float64 {
	if g < 150 {
		return 150.0 / 255
	}
	return float64(g) / 255
}

func (m *Matrix) cornerRow() int {
	if m == nil {
		return 0
	}
	return m.Corner.Row
}

func (m *Matrix) cornerCol() int {
	if m == nil {
		return 0
	}
	return m.Corner.Col
}
