// Package chandist provides utilities for distributing entangled photon
// channels across the nodes of a small quantum key distribution network.
//
// Every link between two nodes (a Combination) is served by one pair of
// frequency-correlated channels (a Selection). One channel of the pair goes to
// each endpoint, one as the signal photon and one as the idler, and no node may
// hold the same channel twice.
package chandist

import (
	"fmt"
)

var (
	DefaultFirstChannel = 14
	DefaultLastChannel  = 37
)

// A Catalog is the fixed, ordered sequence of channel labels available to the
// network. Channel indices used throughout this package index into a Catalog.
type Catalog struct {
	labels []string
	index  map[string]int
}

// NewCatalog returns the catalog of alternating "C{n}" / "H{n}" labels for n in
// [first, last].
func NewCatalog(first, last int) (Catalog, error) {
	if first > last {
		return Catalog{}, fmt.Errorf("empty channel range [%d, %d]", first, last)
	}
	c := Catalog{index: make(map[string]int)}
	for n := first; n <= last; n++ {
		for _, p := range []string{"C", "H"} {
			l := fmt.Sprintf("%s%d", p, n)
			c.index[l] = len(c.labels)
			c.labels = append(c.labels, l)
		}
	}
	return c, nil
}

// DefaultCatalog returns the 48-channel catalog C14, H14, ..., C37, H37.
func DefaultCatalog() Catalog {
	c, err := NewCatalog(DefaultFirstChannel, DefaultLastChannel)
	if err != nil {
		panic(fmt.Sprintf("BUG: default catalog: %v", err))
	}
	return c
}

// Len returns the number of channels in c.
func (c Catalog) Len() int {
	return len(c.labels)
}

// Label returns the label of the i-th channel, or "" if i is out of range.
func (c Catalog) Label(i int) string {
	if i < 0 || i >= len(c.labels) {
		return ""
	}
	return c.labels[i]
}

// Index returns the index of the channel with the given label.
func (c Catalog) Index(label string) (int, bool) {
	i, ok := c.index[label]
	return i, ok
}

// Labels returns a copy of the labels in c.
func (c Catalog) Labels() []string {
	return append([]string(nil), c.labels...)
}

// Contains returns true iff i is a valid channel index for c.
func (c Catalog) Contains(i int) bool {
	return i >= 0 && i < len(c.labels)
}
