package envelope

import (
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/multiformats/go-multibase"

	"xdao.co/envelope/digest"
)

// TextPrefix begins the text transport form of an envelope.
const TextPrefix = "envelope:"

type encryptedWire struct {
	_          struct{} `cbor:",toarray"`
	Ciphertext []byte
	Nonce      []byte
	Digest     []byte
}

type compressedWire struct {
	_      struct{} `cbor:",toarray"`
	Data   []byte
	Digest []byte
}

// Encode returns the canonical wire encoding of e. Equal trees (IsIdenticalTo) encode to
// equal bytes.
func (e *Envelope) Encode() []byte {
	b, err := encMode.Marshal(e.wire())
	if err != nil {
		// Every wire value is built from byte strings, integers, and arrays.
		panic("envelope: wire encoding failed: " + err.Error())
	}
	return b
}

func (e *Envelope) wire() cbor.Tag {
	switch e.kind {
	case CaseLeaf:
		return cbor.Tag{Number: tagLeaf, Content: e.leaf}
	case CaseWrapped:
		return cbor.Tag{Number: tagWrapped, Content: e.subject.wire()}
	case CaseNode:
		items := make([]cbor.Tag, 0, len(e.assertions)+1)
		items = append(items, e.subject.wire())
		for _, a := range e.assertions {
			items = append(items, a.wire())
		}
		return cbor.Tag{Number: tagNode, Content: items}
	case CaseAssertion:
		return cbor.Tag{Number: tagAssertion, Content: []cbor.Tag{e.predicate.wire(), e.object.wire()}}
	case CaseKnownValue:
		return cbor.Tag{Number: tagKnownValue, Content: uint64(e.known)}
	case CaseElided:
		return cbor.Tag{Number: tagElided, Content: e.digest.Bytes()}
	case CaseEncrypted:
		return cbor.Tag{Number: tagEncrypted, Content: encryptedWire{
			Ciphertext: e.sealed.ciphertext,
			Nonce:      e.sealed.nonce,
			Digest:     e.digest.Bytes(),
		}}
	case CaseCompressed:
		return cbor.Tag{Number: tagCompressed, Content: compressedWire{Data: e.compressed, Digest: e.digest.Bytes()}}
	}
	panic("envelope: unknown case " + e.kind.String())
}

// Decode parses a wire encoding. Digests are recomputed from the decoded structure; only
// placeholder digests are taken from the input.
func Decode(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, newError(KindMalformedInput, "ENV-CODEC-001", "empty input")
	}
	return decodeItem(data, 0)
}

func decodeItem(data []byte, depth int) (*Envelope, error) {
	if depth > maxDepth {
		return nil, newError(KindMalformedInput, "ENV-CODEC-002", "envelope nesting exceeds limit")
	}
	var raw cbor.RawTag
	if data[0]>>5 != 6 {
		return nil, newError(KindMalformedInput, "ENV-CODEC-003", "expected a tagged envelope item")
	}
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, wrapError(KindMalformedInput, "ENV-CODEC-003", "expected a tagged envelope item", err)
	}

	switch raw.Number {
	case tagLeaf:
		var content []byte
		if err := decMode.Unmarshal(raw.Content, &content); err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-004", "leaf content must be a byte string", err)
		}
		return NewLeafCBOR(content)

	case tagWrapped:
		inner, err := decodeItem(raw.Content, depth+1)
		if err != nil {
			return nil, err
		}
		return inner.Wrap(), nil

	case tagNode:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(raw.Content, &items); err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-005", "node must be an array", err)
		}
		if len(items) < 2 {
			return nil, newError(KindMalformedInput, "ENV-CODEC-006", "node must carry a subject and at least one assertion")
		}
		subject, err := decodeItem(items[0], depth+1)
		if err != nil {
			return nil, err
		}
		if subject.kind == CaseNode {
			return nil, newError(KindMalformedInput, "ENV-CODEC-007", "node subject must not be a node")
		}
		assertions := make([]*Envelope, 0, len(items)-1)
		for i, item := range items[1:] {
			a, err := decodeItem(item, depth+1)
			if err != nil {
				return nil, err
			}
			if err := checkAssertion(a); err != nil {
				return nil, wrapError(KindMalformedInput, "ENV-CODEC-008", "invalid assertion in node", err)
			}
			if i > 0 && assertions[i-1].digest.Compare(a.digest) >= 0 {
				return nil, newError(KindMalformedInput, "ENV-CODEC-009", "node assertions must be in strictly ascending digest order")
			}
			assertions = append(assertions, a)
		}
		return &Envelope{
			kind:       CaseNode,
			subject:    subject,
			assertions: assertions,
			digest:     nodeDigest(subject.digest, assertions),
		}, nil

	case tagAssertion:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(raw.Content, &items); err != nil || len(items) != 2 {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-010", "assertion must be a two-element array", err)
		}
		p, err := decodeItem(items[0], depth+1)
		if err != nil {
			return nil, err
		}
		o, err := decodeItem(items[1], depth+1)
		if err != nil {
			return nil, err
		}
		return newAssertion(p, o), nil

	case tagKnownValue:
		var v uint64
		if err := decMode.Unmarshal(raw.Content, &v); err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-011", "known value must be an unsigned integer", err)
		}
		return NewKnownValue(KnownValue(v)), nil

	case tagElided:
		var b []byte
		if err := decMode.Unmarshal(raw.Content, &b); err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-012", "elided digest must be a byte string", err)
		}
		d, err := digest.FromBytes(b)
		if err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-012", "elided digest has wrong length", err)
		}
		return NewElided(d), nil

	case tagEncrypted:
		var w encryptedWire
		if err := decMode.Unmarshal(raw.Content, &w); err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-013", "malformed encrypted placeholder", err)
		}
		d, err := digest.FromBytes(w.Digest)
		if err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-013", "encrypted digest has wrong length", err)
		}
		if len(w.Nonce) != nonceSize {
			return nil, newError(KindMalformedInput, "ENV-CODEC-013", "encrypted nonce has wrong length")
		}
		return newEncrypted(d, w.Ciphertext, w.Nonce), nil

	case tagCompressed:
		var w compressedWire
		if err := decMode.Unmarshal(raw.Content, &w); err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-014", "malformed compressed placeholder", err)
		}
		d, err := digest.FromBytes(w.Digest)
		if err != nil {
			return nil, wrapError(KindMalformedInput, "ENV-CODEC-014", "compressed digest has wrong length", err)
		}
		return newCompressed(d, w.Data), nil
	}
	return nil, newError(KindMalformedInput, "ENV-CODEC-015", "unknown envelope tag")
}

// MarshalCBOR implements cbor.Marshaler so envelopes can be embedded in other CBOR values.
func (e *Envelope) MarshalCBOR() ([]byte, error) {
	return e.Encode(), nil
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (e *Envelope) UnmarshalCBOR(data []byte) error {
	d, err := Decode(data)
	if err != nil {
		return err
	}
	*e = *d
	return nil
}

// EncodeString returns the text transport form: "envelope:" followed by the multibase
// base32 rendering of the wire encoding.
func (e *Envelope) EncodeString() string {
	s, err := multibase.Encode(multibase.Base32, e.Encode())
	if err != nil {
		panic("envelope: multibase encoding failed: " + err.Error())
	}
	return TextPrefix + s
}

func (e *Envelope) String() string { return e.EncodeString() }

// DecodeString parses the text transport form.
func DecodeString(s string) (*Envelope, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, TextPrefix) {
		return nil, newError(KindMalformedInput, "ENV-CODEC-016", "missing envelope: prefix")
	}
	_, data, err := multibase.Decode(strings.TrimPrefix(s, TextPrefix))
	if err != nil {
		return nil, wrapError(KindMalformedInput, "ENV-CODEC-017", "invalid multibase payload", err)
	}
	return Decode(data)
}
