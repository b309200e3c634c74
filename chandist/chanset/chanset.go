// Package chanset provides a densely-packed set of channel indices.
package chanset

const byteSize = 8

// A Set is a bitmap over channel indices where every index is explicitly
// represented. The zero value is an empty set that grows on Add.
type Set struct {
	bits []byte
	len  int
}

// New returns an empty Set with room for size indices.
func New(size int) Set {
	if size < 0 {
		size = 0
	}
	return Set{bits: make([]byte, bytesFor(size)), len: size}
}

// Has returns true iff i is a member of s.
func (s Set) Has(i int) bool {
	if i < 0 || i >= s.len {
		return false
	}
	j, pos := i/byteSize, i%byteSize
	return 0 < s.bits[j]&(1<<pos)
}

// Add inserts i into s, growing s if necessary. It returns false if i was
// already present.
func (s *Set) Add(i int) bool {
	if i < 0 {
		return false
	}
	if s.Has(i) {
		return false
	}
	s.grow(i + 1)
	j, pos := i/byteSize, i%byteSize
	s.bits[j] |= 1 << pos
	return true
}

func (s *Set) grow(size int) {
	if size <= s.len {
		return
	}
	s.len = size
	for len(s.bits) < bytesFor(size) {
		s.bits = append(s.bits, 0)
	}
}

// bytesFor returns the number of bytes necessary to hold the provided number
// of indices.
func bytesFor(n int) int {
	return (n + byteSize - 1) / byteSize
}
