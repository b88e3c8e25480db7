package envelope

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// DefaultSaltSize is the salt length used by AddSalt (128 bits).
	DefaultSaltSize = 16
	// MinSaltSize is the shortest salt accepted.
	MinSaltSize = 8
)

// AddSalt adds a 'salt' assertion with DefaultSaltSize random bytes, so that otherwise
// identical envelopes get distinct digests.
func (e *Envelope) AddSalt() (*Envelope, error) {
	return e.AddSaltUsing(rand.Reader, DefaultSaltSize)
}

// AddSaltWithSize adds a salt of exactly n bytes.
func (e *Envelope) AddSaltWithSize(n int) (*Envelope, error) {
	return e.AddSaltUsing(rand.Reader, n)
}

// AddSaltInRange adds a salt whose length is drawn uniformly from [min, max], so the
// envelope's size says less about its content.
func (e *Envelope) AddSaltInRange(min, max int) (*Envelope, error) {
	if min < MinSaltSize || max < min {
		return nil, newError(KindInvalidStructure, "ENV-SALT-002", fmt.Sprintf("invalid salt range [%d, %d]", min, max))
	}
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		return nil, wrapError(KindCrypto, "ENV-SALT-003", "cannot read randomness", err)
	}
	n := min + int(binary.BigEndian.Uint64(b[:])%uint64(max-min+1))
	return e.AddSaltUsing(rand.Reader, n)
}

// AddSaltUsing adds n bytes of salt read from r.
func (e *Envelope) AddSaltUsing(r io.Reader, n int) (*Envelope, error) {
	if n < MinSaltSize {
		return nil, newError(KindInvalidStructure, "ENV-SALT-001", fmt.Sprintf("salt must be at least %d bytes", MinSaltSize))
	}
	salt := make([]byte, n)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, wrapError(KindCrypto, "ENV-SALT-003", "cannot read randomness", err)
	}
	obj, err := newTaggedLeaf(tagSalt, salt)
	if err != nil {
		return nil, err
	}
	return newNode(e, []*Envelope{newAssertion(NewKnownValue(Salt), obj)}), nil
}
