package freqcor

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/alan-christopher/qkdchan/chandist"
	"gonum.org/v1/gonum/mat"
)

const sample = "C15,H16\n" +
	"0\t10\t20\n" +
	"30\t1000\t40\n"

func mustRead(t *testing.T, s string) *Matrix {
	t.Helper()
	m, err := Read(strings.NewReader(s), chandist.DefaultCatalog())
	if err != nil {
		t.Fatalf("bugged test setup: %v", err)
	}
	return m
}

func TestRead(t *testing.T) {
	m := mustRead(t, sample)
	if m.Corner != (chandist.Selection{Row: 2, Col: 5}) {
		t.Errorf("Corner == %v, want 2,5", m.Corner)
	}
	if r, c := m.Dims(); r != 2 || c != 3 {
		t.Errorf("Dims() == %d, %d, want 2, 3", r, c)
	}
	if lo, hi := m.Range(); lo != 0 || hi != 1000 {
		t.Errorf("Range() == %v, %v, want 0, 1000", lo, hi)
	}
}

func TestReadErrors(t *testing.T) {
	tcs := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", "C15,H16\n"},
		{"unknown label", "X1,H16\n1\n"},
		{"bad header", "C15\n1\n"},
		{"ragged", "C15,H16\n1\t2\n3\n"},
		{"not a number", "C15,H16\n1\tx\n"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.in), chandist.DefaultCatalog()); err == nil {
				t.Errorf("Read(%q) did not fail", tc.in)
			}
		})
	}
}

func TestAt(t *testing.T) {
	m := mustRead(t, sample)
	tcs := []struct {
		name     string
		row, col int
		eval     float64
		eok      bool
	}{
		{"corner", 2, 5, 0, true},
		{"peak", 3, 6, 1000, true},
		{"last", 3, 7, 40, true},
		{"above", 1, 5, 0, false},
		{"left", 2, 4, 0, false},
		{"below", 4, 5, 0, false},
		{"right", 2, 8, 0, false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := m.At(tc.row, tc.col)
			if v != tc.eval || ok != tc.eok {
				t.Errorf("At(%d, %d) == %v, %v, want %v, %v", tc.row, tc.col, v, ok, tc.eval, tc.eok)
			}
		})
	}
}

func TestNilMatrix(t *testing.T) {
	var m *Matrix
	if _, ok := m.At(0, 0); ok {
		t.Errorf("nil.At() reported a value")
	}
	if _, ok := m.GreyAt(0, 0); ok {
		t.Errorf("nil.GreyAt() reported a value")
	}
	if _, ok := m.Peak(); ok {
		t.Errorf("nil.Peak() reported a cell")
	}
	if m.Grey(10) != 0 {
		t.Errorf("nil.Grey() != 0")
	}
}

func TestGrey(t *testing.T) {
	m := New(chandist.Selection{}, mat.NewDense(1, 2, []float64{100, 1100}))
	tcs := []struct {
		v    float64
		eout uint8
	}{
		{100, 0},
		{104, 0}, // within the noise floor
		{106, 1},
		{600, 127},
		{1100, 255},
		{5000, 255},
	}
	for _, tc := range tcs {
		if got := m.Grey(tc.v); got != tc.eout {
			t.Errorf("Grey(%v) == %d, want %d", tc.v, got, tc.eout)
		}
	}

	flat := New(chandist.Selection{}, mat.NewDense(1, 2, []float64{7, 7}))
	if got := flat.Grey(7); got != 0 {
		t.Errorf("Grey() over a constant matrix == %d, want 0", got)
	}
}

func TestShade(t *testing.T) {
	tcs := []struct {
		g    uint8
		eout float64
	}{
		{0, 150.0 / 255}, {149, 150.0 / 255}, {150, 150.0 / 255}, {255, 1},
	}
	for _, tc := range tcs {
		if got := Shade(tc.g); got != tc.eout {
			t.Errorf("Shade(%d) == %v, want %v", tc.g, got, tc.eout)
		}
	}
}

func TestPeak(t *testing.T) {
	p, ok := mustRead(t, sample).Peak()
	if !ok || p != (chandist.Selection{Row: 3, Col: 6}) {
		t.Errorf("Peak() == %v, %v, want 3,6, true", p, ok)
	}
}

func TestLoadMissing(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "none.txt"), chandist.DefaultCatalog())
	if err != nil || m != nil {
		t.Errorf("Load() of a missing file == %v, %v, want nil, nil", m, err)
	}
}

func TestOnEdge(t *testing.T) {
	m := New(chandist.Selection{Row: 10, Col: 20}, mat.NewDense(3, 4, nil))
	tcs := []struct {
		name     string
		row, col int
		eout     bool
	}{
		{"corner", 10, 20, true},
		{"top", 10, 21, true},
		{"left", 11, 20, true},
		{"bottom right", 12, 23, true},
		{"interior", 11, 21, false},
		{"interior right", 11, 22, false},
		{"above", 9, 21, false},
		{"right of", 11, 24, false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.OnEdge(tc.row, tc.col); got != tc.eout {
				t.Errorf("OnEdge(%d, %d) == %v, want %v", tc.row, tc.col, got, tc.eout)
			}
		})
	}
	var none *Matrix
	if none.OnEdge(0, 0) {
		t.Errorf("OnEdge() == true on a nil Matrix")
	}
}
