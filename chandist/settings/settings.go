// Package settings reads and writes the plain text files shared by the grid
// editor and the distribution generator.
//
// The settings file is line oriented:
//
//	line 1   comment
//	line 2   number of nodes
//	line 3   comment
//	line 4   "row,col" of the cell anchoring the selected diagonal (may be empty)
//	line 5   comment
//	line 6+  one "row,col" selected channel pair per line
//
// The combinations file lists one node pair per line, e.g. "AB".
package settings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/alan-christopher/qkdchan/chandist"
	"go.uber.org/zap"
)

var DefaultNodes = 4

const (
	nodesComment    = "Number of nodes in the n-node Quantum Network:"
	diagonalComment = "The channel used for identifying the selected diagonal (highest coincidence):"
	selectedComment = "Selected channels to be distributed to the nodes:"
	headerLines     = 5
)

// Settings is the persisted state of the grid editor.
type Settings struct {
	Nodes int

	// Diagonal is the cell anchoring the diagonal, or nil if none was chosen.
	Diagonal *chandist.Selection

	// Selected lists the chosen channel pairs in file order.
	Selected []chandist.Selection
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{Nodes: DefaultNodes}
}

// Read parses a settings file from r.
func Read(r io.Reader) (*Settings, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	s := Default()
	if len(lines) > 1 {
		n, err := strconv.Atoi(strings.TrimSpace(lines[1]))
		if err != nil {
			return nil, fmt.Errorf("line 2: invalid node count: %w", err)
		}
		if err := chandist.ValidateNodes(n); err != nil {
			return nil, fmt.Errorf("line 2: %w", err)
		}
		s.Nodes = n
	}
	if len(lines) > 3 && strings.TrimSpace(lines[3]) != "" {
		d, err := ParseSelection(lines[3])
		if err != nil {
			return nil, fmt.Errorf("line 4: %w", err)
		}
		s.Diagonal = &d
	}
	for i := headerLines; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		sel, err := ParseSelection(lines[i])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		s.Selected = append(s.Selected, sel)
	}
	return s, nil
}

// Load reads the settings file at path. A missing file yields Default().
func Load(path string) (*Settings, error) {
	return LoadOr(path, Default())
}

// LoadOr reads the settings file at path, returning def if it does not exist.
func LoadOr(path string, def *Settings) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return def, nil
		}
		return nil, err
	}
	defer f.Close()
	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Write serializes s to w. Selections are written in ascending column order.
func (s *Settings) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, nodesComment)
	fmt.Fprintln(bw, s.Nodes)
	fmt.Fprintln(bw, diagonalComment)
	if s.Diagonal != nil {
		fmt.Fprintln(bw, s.Diagonal.String())
	} else {
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, selectedComment)
	sels := append([]chandist.Selection(nil), s.Selected...)
	sort.SliceStable(sels, func(i, j int) bool { return sels[i].Col < sels[j].Col })
	for _, sel := range sels {
		fmt.Fprintln(bw, sel.String())
	}
	return bw.Flush()
}

// Save writes s to the file at path, replacing it.
func (s *Settings) Save(path string) error {
	return writeFile(path, s.Write)
}

// ParseSelection parses a "row,col" channel index pair.
func ParseSelection(line string) (chandist.Selection, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 2 {
		return chandist.Selection{}, fmt.Errorf("invalid channel pair %q", line)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return chandist.Selection{}, fmt.Errorf("invalid channel pair %q: %w", line, err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return chandist.Selection{}, fmt.Errorf("invalid channel pair %q: %w", line, err)
	}
	return chandist.Selection{Row: row, Col: col}, nil
}

// ReadCombinations parses a combinations file from r, skipping blank lines.
func ReadCombinations(r io.Reader) ([]chandist.Combination, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	var cs []chandist.Combination
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		c, err := chandist.ParseCombination(l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		cs = append(cs, c)
	}
	return cs, nil
}

// LoadCombinations reads the combinations file at path. A missing file yields
// no combinations.
func LoadCombinations(path string) ([]chandist.Combination, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	cs, err := ReadCombinations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cs, nil
}

// WriteCombinations writes one two-letter combination per line.
func WriteCombinations(w io.Writer, cs []chandist.Combination) error {
	bw := bufio.NewWriter(w)
	for _, c := range cs {
		fmt.Fprintln(bw, c.String())
	}
	return bw.Flush()
}

// SaveCombinations writes cs to the file at path, replacing it.
func SaveCombinations(path string, cs []chandist.Combination) error {
	return writeFile(path, func(w io.Writer) error { return WriteCombinations(w, cs) })
}

// ResolveCombinations returns cs if it holds exactly one link per node pair
// of an n-node network. Otherwise it logs the mismatch and returns the
// canonical combinations of n nodes.
func ResolveCombinations(n int, cs []chandist.Combination, logger *zap.Logger) []chandist.Combination {
	want := chandist.ExpectedCombinations(n)
	if len(cs) == want {
		return cs
	}
	if logger != nil {
		logger.Warn("Combination count does not match network size, regenerating",
			zap.Int("nodes", n),
			zap.Int("have", len(cs)),
			zap.Int("want", want))
	}
	return chandist.Combinations(chandist.NodeLabels(n))
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	return lines, sc.Err()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
