package chandist

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxNodes is the largest network NodeLabels can name.
const MaxNodes = 26

// ErrNodeCount is returned for networks of fewer than 2 or more than MaxNodes
// nodes.
var ErrNodeCount = errors.New("node count out of range")

// ValidateNodes returns an error wrapping ErrNodeCount unless 2 <= n <= MaxNodes.
func ValidateNodes(n int) error {
	if n < 2 || n > MaxNodes {
		return fmt.Errorf("%d nodes, want 2 to %d: %w", n, MaxNodes, ErrNodeCount)
	}
	return nil
}

// NodeLabels returns the labels A, B, C, ... of an n-node network.
func NodeLabels(n int) []string {
	if n > MaxNodes {
		n = MaxNodes
	}
	var r []string
	for i := 0; i < n; i++ {
		r = append(r, string(rune('A'+i)))
	}
	return r
}

// A Combination is a required link between two nodes.
type Combination struct {
	A, B string
}

// String returns the two-letter encoding of c, e.g. "AB".
func (c Combination) String() string {
	return c.A + c.B
}

// ParseCombination parses a link encoded as two node labels, either adjacent
// ("AB") or separated by a comma, dash or whitespace ("A,B", "A-B", "A B").
// Labels are single letters and are upper-cased.
func ParseCombination(s string) (Combination, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return r == ',' || r == '-' || unicode.IsSpace(r)
	})
	if len(fields) == 1 && len(fields[0]) == 2 {
		fields = []string{fields[0][:1], fields[0][1:]}
	}
	if len(fields) != 2 {
		return Combination{}, fmt.Errorf("invalid combination %q", s)
	}
	c := Combination{A: strings.ToUpper(fields[0]), B: strings.ToUpper(fields[1])}
	if !isNodeLabel(c.A) || !isNodeLabel(c.B) {
		return Combination{}, fmt.Errorf("invalid node label in combination %q", s)
	}
	if c.A == c.B {
		return Combination{}, fmt.Errorf("combination %q links a node to itself", s)
	}
	return c, nil
}

// ExpectedCombinations returns n*(n-1)/2, the number of links in a fully
// connected n-node network.
func ExpectedCombinations(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// Combinations returns every unordered pair of nodes in lexicographic order,
// e.g. AB, AC, AD, BC, BD, CD for four nodes.
func Combinations(nodes []string) []Combination {
	var r []Combination
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			r = append(r, Combination{A: nodes[i], B: nodes[j]})
		}
	}
	return r
}

func isNodeLabel(l string) bool {
	return len(l) == 1 && l[0] >= 'A' && l[0] < 'A'+MaxNodes
}
