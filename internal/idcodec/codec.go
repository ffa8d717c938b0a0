package idcodec

import (
	"errors"
	"fmt"
	"math"
)

// latin29 avoids vowels and the digits 0 and 1 so encoded identifiers never
// spell words and cannot be confused with O/I/L glyphs.
const latin29 = "23456789BCDFGHJKLMNPQRSTVWXYZ"

// ErrInvalid reports a string that is not the canonical encoding of any id.
var ErrInvalid = errors.New("invalid identifier")

// Codec converts dense integers into short positional strings over a fixed
// alphabet. The mapping must never change once identifiers are published.
type Codec struct {
	alphabet string
	base     uint64
	index    [256]int16
}

// Latin29 is the codec used for all published stable identifiers.
var Latin29 = mustNew(latin29)

// New builds a codec for the given alphabet. The alphabet must contain at
// least two distinct ASCII characters.
func New(alphabet string) (*Codec, error) {
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("alphabet needs at least 2 characters, got %d", len(alphabet))
	}
	c := &Codec{alphabet: alphabet, base: uint64(len(alphabet))}
	for i := range c.index {
		c.index[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		ch := alphabet[i]
		if ch >= 0x80 {
			return nil, fmt.Errorf("alphabet character %q is not ASCII", ch)
		}
		if c.index[ch] >= 0 {
			return nil, fmt.Errorf("alphabet character %q repeated", ch)
		}
		c.index[ch] = int16(i)
	}
	return c, nil
}

func mustNew(alphabet string) *Codec {
	c, err := New(alphabet)
	if err != nil {
		panic(err)
	}
	return c
}

// Encode returns the canonical string for id, most significant digit first.
func (c *Codec) Encode(id uint32) string {
	if id == 0 {
		return c.alphabet[:1]
	}
	var buf [32]byte
	i := len(buf)
	for n := uint64(id); n > 0; n /= c.base {
		i--
		buf[i] = c.alphabet[n%c.base]
	}
	return string(buf[i:])
}

// Decode parses a canonical encoding back into its integer. Strings with a
// leading zero digit, unknown characters or values beyond uint32 are rejected
// so every id has exactly one textual form.
func (c *Codec) Decode(value string) (uint32, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}
	if len(value) > 1 && value[0] == c.alphabet[0] {
		return 0, fmt.Errorf("%w: %q has a leading zero digit", ErrInvalid, value)
	}
	var n uint64
	for i := 0; i < len(value); i++ {
		digit := c.index[value[i]]
		if digit < 0 {
			return 0, fmt.Errorf("%w: %q contains %q", ErrInvalid, value, value[i])
		}
		n = n*c.base + uint64(digit)
		if n > math.MaxUint32 {
			return 0, fmt.Errorf("%w: %q exceeds 32 bits", ErrInvalid, value)
		}
	}
	return uint32(n), nil
}

// Encode encodes id with the Latin29 codec.
func Encode(id uint32) string {
	return Latin29.Encode(id)
}

// Decode decodes value with the Latin29 codec.
func Decode(value string) (uint32, error) {
	return Latin29.Decode(value)
}
