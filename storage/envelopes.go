package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/envelope/digest"
	"xdao.co/envelope/envelope"
)

// EnvelopeStore stores envelopes as their wire encoding in a CAS.
//
// Different partial views of one document are different blocks with the same envelope
// digest; Find returns all of them.
type EnvelopeStore struct {
	CAS CAS
}

// Put encodes e and stores it.
func (s EnvelopeStore) Put(e *envelope.Envelope) (cid.Cid, error) {
	if e == nil {
		return cid.Undef, fmt.Errorf("%w: nil envelope", ErrNotEnvelope)
	}
	return s.CAS.Put(e.Encode())
}

// Get loads and decodes the block id. Blocks that do not decode fail with ErrNotEnvelope.
func (s EnvelopeStore) Get(id cid.Cid) (*envelope.Envelope, error) {
	b, err := s.CAS.Get(id)
	if err != nil {
		return nil, err
	}
	e, err := envelope.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotEnvelope, id, err)
	}
	return e, nil
}

// Find returns the CIDs of stored envelopes whose digest is d. The backend must implement
// Lister. Blocks that are not envelopes, or vanish during the scan, are skipped; a corrupt
// block stops the scan.
func (s EnvelopeStore) Find(d digest.Digest) ([]cid.Cid, error) {
	l, ok := s.CAS.(Lister)
	if !ok {
		return nil, ErrNoList
	}
	ids, err := l.List()
	if err != nil {
		return nil, err
	}
	var out []cid.Cid
	for _, id := range ids {
		e, err := s.Get(id)
		if err != nil {
			if IsCorrupt(err) {
				return nil, fmt.Errorf("find %s: %w", d.Short(), err)
			}
			continue
		}
		if e.Digest() == d {
			out = append(out, id)
		}
	}
	return out, nil
}
