package chandist

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/alan-christopher/qkdchan/chandist/chanset"
)

var DefaultMaxAttempts = 20

// ErrExhausted is returned by Distribute when every attempt produced a node
// holding the same channel twice.
var ErrExhausted = errors.New("no duplicate-free assignment found")

// ErrChannelRange is returned when a selection names a channel outside the
// catalog.
var ErrChannelRange = errors.New("channel index out of range")

// A Role labels which photon of an entangled pair a node receives.
type Role int

const (
	Signal Role = iota
	Idler
)

func (r Role) String() string {
	switch r {
	case Signal:
		return "signal"
	case Idler:
		return "idler"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// A Selection is a pair of catalog indices chosen to serve one Combination.
// Row is offered to the combination's first node, Col to its second.
type Selection struct {
	Row, Col int
}

func (s Selection) String() string {
	return fmt.Sprintf("%d,%d", s.Row, s.Col)
}

// An Entry is one channel held by a node.
type Entry struct {
	Label string
	Index int
	Role  Role
}

// An Assignment maps node labels to the channels they hold, in the order they
// were assigned.
type Assignment map[string][]Entry

// Nodes returns the node labels of a in alphabetical order.
func (a Assignment) Nodes() []string {
	r := make([]string, 0, len(a))
	for n := range a {
		r = append(r, n)
	}
	sort.Strings(r)
	return r
}

// Holds returns true iff node has been assigned the channel with index idx.
func (a Assignment) Holds(node string, idx int) bool {
	for _, e := range a[node] {
		if e.Index == idx {
			return true
		}
	}
	return false
}

// Duplicates returns, per node, the channel indices held more than once. It
// returns an empty map for a valid assignment.
func (a Assignment) Duplicates() map[string][]int {
	r := make(map[string][]int)
	for n, es := range a {
		var seen, dup chanset.Set
		for _, e := range es {
			if !seen.Add(e.Index) && dup.Add(e.Index) {
				r[n] = append(r[n], e.Index)
			}
		}
	}
	return r
}

// ValidateSelections returns an error wrapping ErrChannelRange if any
// selection names a channel outside cat.
func ValidateSelections(cat Catalog, sels []Selection) error {
	for i, s := range sels {
		if !cat.Contains(s.Row) || !cat.Contains(s.Col) {
			return fmt.Errorf("selection %d (%v) against %d channels: %w", i, s, cat.Len(), ErrChannelRange)
		}
	}
	return nil
}

// Assign performs a single assignment pass, pairing combos[i] with sels[i].
// Combinations without a selection are ignored, as are selections without a
// combination. Every selection index must be valid for cat.
//
// By default the Row channel goes to the first node as signal and the Col
// channel to the second as idler. The orientation is swapped only when the
// first node already holds the Row channel; a second node already holding the
// Col channel is not checked for and surfaces as a duplicate. Assign reports
// false if any node ends up holding a channel twice.
func Assign(cat Catalog, combos []Combination, sels []Selection) (Assignment, bool) {
	a := make(Assignment)
	held := make(map[string]*chanset.Set)
	give := func(node string, idx int, role Role) {
		held[node].Add(idx)
		a[node] = append(a[node], Entry{Label: cat.Label(idx), Index: idx, Role: role})
	}
	for i, c := range combos {
		if i >= len(sels) {
			break
		}
		for _, n := range []string{c.A, c.B} {
			if _, exists := a[n]; !exists {
				a[n] = []Entry{}
				s := chanset.New(cat.Len())
				held[n] = &s
			}
		}
		s := sels[i]
		if held[c.A].Has(s.Row) {
			give(c.A, s.Col, Idler)
			give(c.B, s.Row, Signal)
		} else {
			give(c.A, s.Row, Signal)
			give(c.B, s.Col, Idler)
		}
	}
	return a, len(a.Duplicates()) == 0
}

// Options configures Distribute.
type Options struct {
	// Rand reorders the links between attempts. A seeded source makes a run
	// reproducible. Must be non-nil.
	Rand *rand.Rand

	// MaxAttempts bounds the number of assignment passes. Defaults to
	// DefaultMaxAttempts.
	MaxAttempts int

	// OnConflict, if non-nil, is called after every failed attempt with the
	// 1-based attempt number and the duplicates it produced.
	OnConflict func(attempt int, dups map[string][]int)
}

// A Result packages together the outcome of Distribute.
type Result struct {
	// Assignment is the assignment of the final attempt. If OK is false it
	// contains at least one duplicate.
	Assignment Assignment
	OK         bool
	Attempts   int

	// Combinations and Selections give the order in which the final attempt
	// processed the links.
	Combinations []Combination
	Selections   []Selection
}

// Distribute repeatedly runs Assign until it yields an assignment without
// duplicates. After each failure the (combination, selection) pairs are
// shuffled together using opts.Rand, so every combination keeps its
// selection. When the attempts are exhausted the last assignment is returned
// along with an error wrapping ErrExhausted.
func Distribute(cat Catalog, combos []Combination, sels []Selection, opts Options) (Result, error) {
	if opts.Rand == nil {
		return Result{}, errors.New("must provide Rand")
	}
	if opts.MaxAttempts < 0 {
		return Result{}, fmt.Errorf("invalid attempt budget %d", opts.MaxAttempts)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if err := ValidateSelections(cat, sels); err != nil {
		return Result{}, err
	}

	k := len(combos)
	if len(sels) < k {
		k = len(sels)
	}
	cs := append([]Combination(nil), combos[:k]...)
	ss := append([]Selection(nil), sels[:k]...)

	var r Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		a, ok := Assign(cat, cs, ss)
		r = Result{
			Assignment:   a,
			OK:           ok,
			Attempts:     attempt,
			Combinations: append([]Combination(nil), cs...),
			Selections:   append([]Selection(nil), ss...),
		}
		if ok {
			return r, nil
		}
		if opts.OnConflict != nil {
			opts.OnConflict(attempt, a.Duplicates())
		}
		if attempt < maxAttempts {
			opts.Rand.Shuffle(k, func(i, j int) {
				cs[i], cs[j] = cs[j], cs[i]
				ss[i], ss[j] = ss[j], ss[i]
			})
		}
	}
	return r, fmt.Errorf("%w after %d attempts", ErrExhausted, maxAttempts)
}

// Sorted returns a copy of a in which each node lists its signal channels
// before its idler channels, ascending by channel index within each role.
func Sorted(a Assignment) Assignment {
	r := make(Assignment, len(a))
	for n, es := range a {
		cp := append([]Entry{}, es...)
		sort.SliceStable(cp, func(i, j int) bool {
			if cp[i].Role != cp[j].Role {
				return cp[i].Role == Signal
			}
			return cp[i].Index < cp[j].Index
		})
		r[n] = cp
	}
	return r
}
