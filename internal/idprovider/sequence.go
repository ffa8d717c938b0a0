package idprovider

import (
	"errors"
	"math"
)

// ErrSequenceExhausted means every 32 bit identifier has been handed out.
var ErrSequenceExhausted = errors.New("id sequence exhausted")

// Sequence mints new stable ids. It only ever moves forward.
type Sequence struct {
	last uint32
}

// NewSequence returns a sequence whose first id is seed+1.
func NewSequence(seed uint32) *Sequence {
	return &Sequence{last: seed}
}

// Next returns the next unused id.
func (s *Sequence) Next() (uint32, error) {
	if s.last == math.MaxUint32 {
		return 0, ErrSequenceExhausted
	}
	s.last++
	return s.last, nil
}

// Current returns the last id handed out, or the seed if none was.
func (s *Sequence) Current() uint32 {
	return s.last
}
