// Package marker makes repeated message texts byte-distinct without changing
// what a reader sees, so literal duplicate-content checks do not reject them.
package marker

import (
	"math/rand"
	"strings"
	"sync/atomic"
)

// Alphabet holds the zero-width code points used for suffixes:
// ZERO WIDTH SPACE, ZERO WIDTH NON-JOINER, ZERO WIDTH JOINER, WORD JOINER and
// ZERO WIDTH NO-BREAK SPACE.
var Alphabet = [...]rune{'\u200b', '\u200c', '\u200d', '\u2060', '\ufeff'}

// seedSpan keeps suffixes from a random seed within 4 code points.
const seedSpan = 624

// Mutator appends a zero-width suffix that encodes a per-mutator serial.
//
// Serials are written in bijective base len(Alphabet), so every serial has a
// distinct, non-empty suffix and two calls never return the same string for
// the same input. Safe for concurrent use.
type Mutator struct {
	serial atomic.Uint64
}

// New returns a mutator starting at a random serial, so that separate
// processes are unlikely to reuse a suffix for the same message.
func New() *Mutator {
	return NewSeeded(uint64(rand.Int63n(seedSpan)))
}

// NewSeeded returns a mutator whose first Mark encodes seed+1.
func NewSeeded(seed uint64) *Mutator {
	m := &Mutator{}
	m.serial.Store(seed)
	return m
}

// Mark returns text followed by the next zero-width suffix.
func (m *Mutator) Mark(text string) string {
	return text + Suffix(m.serial.Add(1))
}

// Suffix encodes n (n >= 1) in bijective base len(Alphabet). Suffix(0) is "".
func Suffix(n uint64) string {
	base := uint64(len(Alphabet))
	var out []rune
	for n > 0 {
		n--
		out = append(out, Alphabet[n%base])
		n /= base
	}
	return string(out)
}

// Strip removes a trailing run of marker code points.
func Strip(s string) string {
	return strings.TrimRightFunc(s, IsMarker)
}

// IsMarker reports whether r belongs to Alphabet.
func IsMarker(r rune) bool {
	for _, a := range Alphabet {
		if r == a {
			return true
		}
	}
	return false
}
