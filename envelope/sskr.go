package envelope

import (
	"github.com/fxamacker/cbor/v2"

	"xdao.co/envelope/digest"
)

// ThresholdScheme splits a secret into count shares, any threshold of which recover it.
type ThresholdScheme interface {
	Split(secret []byte, threshold, count int) ([][]byte, error)
	Recover(shares [][]byte) ([]byte, error)
}

// SSKRSplit encrypts e under contentKey and returns count envelopes, each carrying the same
// encrypted wrapped subject plus one 'sskrShare' assertion holding one share of the key.
func (e *Envelope) SSKRSplit(scheme ThresholdScheme, threshold, count int, contentKey SymmetricKey) ([]*Envelope, error) {
	if threshold < 1 || count < threshold {
		return nil, newError(KindInvalidStructure, "ENV-SSKR-001", "threshold must be between 1 and count")
	}
	sealed, err := e.Wrap().EncryptSubject(contentKey)
	if err != nil {
		return nil, err
	}
	shares, err := scheme.Split(contentKey[:], threshold, count)
	if err != nil {
		return nil, wrapError(KindCrypto, "ENV-SSKR-002", "cannot split content key", err)
	}
	out := make([]*Envelope, 0, len(shares))
	for _, share := range shares {
		obj, err := newTaggedLeaf(tagSSKRShare, share)
		if err != nil {
			return nil, err
		}
		out = append(out, newNode(sealed, []*Envelope{newAssertion(NewKnownValue(SSKRShare), obj)}))
	}
	return out, nil
}

// SSKRJoin recovers the content key from share envelopes and returns the original envelope.
// Envelopes are grouped by subject digest; the first group that recovers a key which
// decrypts its subject wins.
func SSKRJoin(scheme ThresholdScheme, envelopes []*Envelope) (*Envelope, error) {
	if len(envelopes) == 0 {
		return nil, newError(KindInsufficientShares, "ENV-SSKR-003", "no share envelopes")
	}
	type group struct {
		subject *Envelope
		shares  [][]byte
	}
	var order []digest.Digest
	groups := make(map[digest.Digest]*group)
	for _, env := range envelopes {
		subj := env.Subject()
		g, ok := groups[subj.digest]
		if !ok {
			g = &group{subject: subj}
			groups[subj.digest] = g
			order = append(order, subj.digest)
		}
		for _, obj := range env.ObjectsForPredicate(SSKRShare) {
			if share, ok := shareFromLeaf(obj); ok {
				g.shares = append(g.shares, share)
			}
		}
	}

	var lastErr error = newError(KindInsufficientShares, "ENV-SSKR-004", "not enough shares to recover the content key")
	for _, d := range order {
		g := groups[d]
		if g.subject.kind != CaseEncrypted || len(g.shares) == 0 {
			continue
		}
		secret, err := scheme.Recover(g.shares)
		if err != nil {
			lastErr = wrapError(KindInsufficientShares, "ENV-SSKR-004", "not enough shares to recover the content key", err)
			continue
		}
		key, err := SymmetricKeyFromBytes(secret)
		if err != nil {
			lastErr = err
			continue
		}
		wrapped, err := g.subject.Decrypt(key)
		if err != nil {
			lastErr = err
			continue
		}
		return wrapped.Unwrap()
	}
	return nil, lastErr
}

func shareFromLeaf(obj *Envelope) ([]byte, bool) {
	if obj.kind != CaseLeaf {
		return nil, false
	}
	var tag cbor.RawTag
	if err := decMode.Unmarshal(obj.leaf, &tag); err != nil || tag.Number != tagSSKRShare {
		return nil, false
	}
	var share []byte
	if err := decMode.Unmarshal(tag.Content, &share); err != nil {
		return nil, false
	}
	return share, true
}
