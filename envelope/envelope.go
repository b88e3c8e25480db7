package envelope

import (
	"sort"

	"xdao.co/envelope/digest"
)

// Case identifies the variant of an envelope node.
type Case uint8

const (
	CaseLeaf Case = iota + 1
	CaseWrapped
	CaseNode
	CaseAssertion
	CaseKnownValue
	CaseElided
	CaseEncrypted
	CaseCompressed
)

func (c Case) String() string {
	switch c {
	case CaseLeaf:
		return "leaf"
	case CaseWrapped:
		return "wrapped"
	case CaseNode:
		return "node"
	case CaseAssertion:
		return "assertion"
	case CaseKnownValue:
		return "knownValue"
	case CaseElided:
		return "elided"
	case CaseEncrypted:
		return "encrypted"
	case CaseCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}

// Envelope is an immutable, digest-addressed tree node.
//
// The zero value is not usable; build envelopes with the constructors in this package or by
// decoding. Every transformation returns a new *Envelope that shares unmodified subtrees with
// its input. The digest is computed once at construction.
type Envelope struct {
	kind   Case
	digest digest.Digest

	leaf       []byte      // CaseLeaf: canonical CBOR content
	known      KnownValue  // CaseKnownValue
	subject    *Envelope   // CaseNode subject, CaseWrapped content
	assertions []*Envelope // CaseNode: sorted by digest, unique, non-empty
	predicate  *Envelope   // CaseAssertion
	object     *Envelope   // CaseAssertion
	sealed     *sealed     // CaseEncrypted
	compressed []byte      // CaseCompressed
}

// sealed is the payload of an encrypted placeholder.
type sealed struct {
	ciphertext []byte
	nonce      []byte
}

// New returns an envelope for v.
//
// An *Envelope is returned as-is, a KnownValue becomes a known-value node, and anything else
// becomes a leaf. New panics if v cannot be CBOR-encoded (channels, funcs); use NewLeaf to
// handle that case as an error.
func New(v any) *Envelope {
	switch x := v.(type) {
	case *Envelope:
		return x
	case KnownValue:
		return NewKnownValue(x)
	}
	e, err := NewLeaf(v)
	if err != nil {
		panic(err)
	}
	return e
}

func newLeaf(content []byte) *Envelope {
	return &Envelope{kind: CaseLeaf, leaf: content, digest: leafDigest(content)}
}

// NewKnownValue returns a known-value envelope.
func NewKnownValue(kv KnownValue) *Envelope {
	return &Envelope{kind: CaseKnownValue, known: kv, digest: knownValueDigest(kv)}
}

// NewAssertion returns a (predicate, object) assertion. Both arguments go through New.
func NewAssertion(predicate, object any) *Envelope {
	return newAssertion(New(predicate), New(object))
}

func newAssertion(p, o *Envelope) *Envelope {
	return &Envelope{
		kind:      CaseAssertion,
		predicate: p,
		object:    o,
		digest:    assertionDigest(p.digest, o.digest),
	}
}

// NewElided returns a placeholder that retains only d.
func NewElided(d digest.Digest) *Envelope {
	return &Envelope{kind: CaseElided, digest: d}
}

func newEncrypted(d digest.Digest, ciphertext, nonce []byte) *Envelope {
	return &Envelope{kind: CaseEncrypted, digest: d, sealed: &sealed{ciphertext: ciphertext, nonce: nonce}}
}

func newCompressed(d digest.Digest, data []byte) *Envelope {
	return &Envelope{kind: CaseCompressed, digest: d, compressed: data}
}

// Wrap returns an envelope whose subject is e treated as a single opaque unit, so assertions
// can be made about the whole of e.
func (e *Envelope) Wrap() *Envelope {
	return &Envelope{kind: CaseWrapped, subject: e, digest: wrappedDigest(e.digest)}
}

// Unwrap returns the content of a wrapped subject.
func (e *Envelope) Unwrap() (*Envelope, error) {
	s := e.Subject()
	if s.kind != CaseWrapped {
		return nil, newError(KindInvalidStructure, "ENV-STRUCT-001", "subject is not wrapped")
	}
	return s.subject, nil
}

// newNode builds a node from a subject and assertions. Assertions are sorted by digest and
// deduplicated. A node subject passed in contributes its own assertions.
func newNode(subject *Envelope, assertions []*Envelope) *Envelope {
	if subject.kind == CaseNode {
		assertions = append(append([]*Envelope(nil), subject.assertions...), assertions...)
		subject = subject.subject
	}
	set := sortAssertions(assertions)
	if len(set) == 0 {
		return subject
	}
	return &Envelope{
		kind:       CaseNode,
		subject:    subject,
		assertions: set,
		digest:     nodeDigest(subject.digest, set),
	}
}

func sortAssertions(in []*Envelope) []*Envelope {
	out := append([]*Envelope(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].digest.Compare(out[j].digest) < 0 })
	uniq := out[:0]
	for i, a := range out {
		if i > 0 && a.digest == out[i-1].digest {
			continue
		}
		uniq = append(uniq, a)
	}
	return uniq
}

func (e *Envelope) Case() Case { return e.kind }

func (e *Envelope) Digest() digest.Digest { return e.digest }

// Subject returns the subject of a node, or e itself for every other case.
func (e *Envelope) Subject() *Envelope {
	if e.kind == CaseNode {
		return e.subject
	}
	return e
}

// Assertions returns a copy of the node's assertion set in digest order. Non-nodes have none.
func (e *Envelope) Assertions() []*Envelope {
	if e.kind != CaseNode {
		return nil
	}
	return append([]*Envelope(nil), e.assertions...)
}

func (e *Envelope) HasAssertions() bool { return e.kind == CaseNode }

// Predicate returns the predicate of an assertion envelope.
func (e *Envelope) Predicate() (*Envelope, error) {
	if e.kind != CaseAssertion {
		return nil, newError(KindInvalidStructure, "ENV-STRUCT-002", "envelope is not an assertion")
	}
	return e.predicate, nil
}

// Object returns the object of an assertion envelope.
func (e *Envelope) Object() (*Envelope, error) {
	if e.kind != CaseAssertion {
		return nil, newError(KindInvalidStructure, "ENV-STRUCT-002", "envelope is not an assertion")
	}
	return e.object, nil
}

// LeafCBOR returns the canonical CBOR content of a leaf.
func (e *Envelope) LeafCBOR() ([]byte, bool) {
	if e.kind != CaseLeaf {
		return nil, false
	}
	return append([]byte(nil), e.leaf...), true
}

func (e *Envelope) KnownValue() (KnownValue, bool) {
	if e.kind != CaseKnownValue {
		return 0, false
	}
	return e.known, true
}

func (e *Envelope) IsElided() bool    { return e.kind == CaseElided }
func (e *Envelope) IsEncrypted() bool { return e.kind == CaseEncrypted }
func (e *Envelope) IsCompressed() bool {
	return e.kind == CaseCompressed
}

// IsObscured reports whether e is an elided, encrypted, or compressed placeholder.
func (e *Envelope) IsObscured() bool {
	switch e.kind {
	case CaseElided, CaseEncrypted, CaseCompressed:
		return true
	}
	return false
}

// IsEquivalentTo reports whether e and other have the same digest.
func (e *Envelope) IsEquivalentTo(other *Envelope) bool {
	return other != nil && e.digest == other.digest
}

// IsIdenticalTo reports whether e and other have the same digest and the same structure,
// including which parts are obscured and how.
func (e *Envelope) IsIdenticalTo(other *Envelope) bool {
	if e == other {
		return true
	}
	if other == nil || e.kind != other.kind || e.digest != other.digest {
		return false
	}
	switch e.kind {
	case CaseNode:
		if !e.subject.IsIdenticalTo(other.subject) || len(e.assertions) != len(other.assertions) {
			return false
		}
		for i := range e.assertions {
			if !e.assertions[i].IsIdenticalTo(other.assertions[i]) {
				return false
			}
		}
		return true
	case CaseWrapped:
		return e.subject.IsIdenticalTo(other.subject)
	case CaseAssertion:
		return e.predicate.IsIdenticalTo(other.predicate) && e.object.IsIdenticalTo(other.object)
	default:
		// Leaves and known values are fully determined by their digest; placeholders are
		// compared by digest because ciphertexts differ per nonce.
		return true
	}
}
