package domain

import (
	"bytes"

	"github.com/google/uuid"
)

// Pair is an unordered pair of user IDs kept in canonical order, Low < High
// bytewise. Byte order matches the lexical order of the lowercase string form
// and Postgres' uuid ordering, so a Pair can be used directly as a unique key.
type Pair struct {
	Low  uuid.UUID
	High uuid.UUID
}

// NewPair canonicalizes (a, b). NewPair(a, b) == NewPair(b, a).
func NewPair(a, b uuid.UUID) Pair {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

func (p Pair) IsSelf() bool {
	return p.Low == p.High
}

func (p Pair) Contains(id uuid.UUID) bool {
	return id != uuid.Nil && (p.Low == id || p.High == id)
}

// Other returns the member of the pair that is not id, or uuid.Nil when id
// is not part of the pair.
func (p Pair) Other(id uuid.UUID) uuid.UUID {
	switch id {
	case p.Low:
		return p.High
	case p.High:
		return p.Low
	}
	return uuid.Nil
}
