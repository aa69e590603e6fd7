// Package tag generates the opaque identifiers that correlate an analysis
// fact with the markup rendered for it.
//
// A tag is the literal prefix "tag" followed by characters drawn uniformly
// from a 62-symbol alphanumeric alphabet, so it is always a valid element and
// class name. With DefaultLength characters two tags in one document collide
// with negligible probability; Session removes even that residual risk.
package tag

import (
	"math/rand/v2"
	"strings"
)

const (
	// Prefix keeps tags from starting with a digit or being empty.
	Prefix = "tag"
	// Alphabet is the set of symbols tags are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// DefaultLength is the number of random characters per tag.
	DefaultLength = 26
)

// Generator draws tags from an injected randomness source.
// It holds no state besides the source and is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator reading from src. Tests pass a seeded source.
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewRandom returns a generator seeded from the runtime's entropy.
func NewRandom() *Generator {
	return New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeeded returns a reproducible generator.
func NewSeeded(seed uint64) *Generator {
	return New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

// Make returns Prefix followed by length random alphabet characters.
// It panics if length is negative.
func (g *Generator) Make(length int) string {
	if length < 0 {
		panic("tag: negative length")
	}
	var b strings.Builder
	b.Grow(len(Prefix) + length)
	b.WriteString(Prefix)
	for range length {
		b.WriteByte(Alphabet[g.rng.IntN(len(Alphabet))])
	}
	return b.String()
}

// Valid reports whether s has the shape of a generated tag.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if strings.IndexByte(Alphabet, rest[i]) < 0 {
			return false
		}
	}
	return true
}
