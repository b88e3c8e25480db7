package envelope

import (
	"github.com/fxamacker/cbor/v2"
)

// Signature is an opaque signature produced by a Signer. Scheme names the algorithm
// (e.g. "ed25519") so verifiers can reject mismatched keys early.
type Signature struct {
	_      struct{} `cbor:",toarray"`
	Scheme string
	Data   []byte
}

// Signer produces signatures over arbitrary messages.
type Signer interface {
	Sign(message []byte) (Signature, error)
}

// Verifier checks signatures produced by the matching Signer.
type Verifier interface {
	Verify(message []byte, sig Signature) bool
}

// AddSignature signs the subject digest and adds a 'signed' assertion carrying the signature.
// Signing an already-signed envelope adds an independent signature.
func (e *Envelope) AddSignature(signer Signer) (*Envelope, error) {
	return e.AddSignatures(signer)
}

// AddSignatures adds one 'signed' assertion per signer, each over the subject digest.
func (e *Envelope) AddSignatures(signers ...Signer) (*Envelope, error) {
	msg := e.Subject().digest
	added := make([]*Envelope, 0, len(signers))
	for _, s := range signers {
		sig, err := s.Sign(msg[:])
		if err != nil {
			return nil, wrapError(KindCrypto, "ENV-SIG-001", "signer failed", err)
		}
		obj, err := newTaggedLeaf(tagSignature, sig)
		if err != nil {
			return nil, err
		}
		added = append(added, newAssertion(NewKnownValue(Signed), obj))
	}
	return newNode(e, added), nil
}

// Signatures returns every decodable signature in a 'signed' assertion.
func (e *Envelope) Signatures() []Signature {
	var out []Signature
	for _, obj := range e.ObjectsForPredicate(Signed) {
		if sig, ok := signatureFromLeaf(obj); ok {
			out = append(out, sig)
		}
	}
	return out
}

func signatureFromLeaf(obj *Envelope) (Signature, bool) {
	if obj.kind != CaseLeaf {
		return Signature{}, false
	}
	var tag cbor.RawTag
	if err := decMode.Unmarshal(obj.leaf, &tag); err != nil || tag.Number != tagSignature {
		return Signature{}, false
	}
	var sig Signature
	if err := decMode.Unmarshal(tag.Content, &sig); err != nil {
		return Signature{}, false
	}
	return sig, true
}

// HasSignatureFrom reports whether any signature on e verifies under v.
func (e *Envelope) HasSignatureFrom(v Verifier) bool {
	msg := e.Subject().digest
	for _, sig := range e.Signatures() {
		if v.Verify(msg[:], sig) {
			return true
		}
	}
	return false
}

// VerifySignatureFrom returns e if it carries a valid signature from v.
func (e *Envelope) VerifySignatureFrom(v Verifier) (*Envelope, error) {
	if !e.HasSignatureFrom(v) {
		return nil, newError(KindVerificationFailed, "ENV-SIG-002", "no valid signature from verifier")
	}
	return e, nil
}

// VerifySignaturesFromThreshold returns e if at least threshold of the verifiers have a
// valid signature on it. A threshold of zero or less means all of them.
func (e *Envelope) VerifySignaturesFromThreshold(verifiers []Verifier, threshold int) (*Envelope, error) {
	if threshold <= 0 {
		threshold = len(verifiers)
	}
	if threshold == 0 {
		return e, nil
	}
	n := 0
	for _, v := range verifiers {
		if e.HasSignatureFrom(v) {
			n++
			if n >= threshold {
				return e, nil
			}
		}
	}
	return nil, newError(KindVerificationFailed, "ENV-SIG-003", "signature threshold not met")
}
