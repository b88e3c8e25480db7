package envelope

import (
	"bytes"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// CBOR tag numbers used by leaf content and the wire codec.
const (
	tagDate       uint64 = 1
	tagLeaf       uint64 = 24
	tagUUID       uint64 = 37
	tagWrapped    uint64 = 200
	tagNode       uint64 = 201
	tagAssertion  uint64 = 202
	tagElided     uint64 = 203
	tagKnownValue uint64 = 40000
	tagEncrypted  uint64 = 40002
	tagCompressed uint64 = 40003
	tagSalt       uint64 = 40018
	tagSignature  uint64 = 40020
	tagSSKRShare  uint64 = 40309
)

// maxDepth bounds decoder recursion; CBOR nesting is two levels per envelope level.
const maxDepth = 512

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	tags := cbor.NewTagSet()
	if err := tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
		reflect.TypeOf(uuid.UUID{}),
		tagUUID,
	); err != nil {
		panic(err)
	}

	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeUnixDynamic
	eo.TimeTag = cbor.EncTagRequired
	em, err := eo.EncModeWithTags(tags)
	if err != nil {
		panic(err)
	}

	do := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		MaxNestedLevels: 2 * maxDepth,
	}
	dm, err := do.DecModeWithTags(tags)
	if err != nil {
		panic(err)
	}
	encMode, decMode = em, dm
}

// NewLeaf encodes v as canonical CBOR and returns a leaf envelope.
//
// Supported content includes strings, integers, floats, booleans, nil, byte slices,
// time.Time (tag 1), uuid.UUID (tag 37), and any value the CBOR encoder accepts.
func NewLeaf(v any) (*Envelope, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, wrapError(KindInvalidStructure, "ENV-LEAF-001", "leaf content cannot be encoded", err)
	}
	return newLeaf(b), nil
}

// NewLeafCBOR returns a leaf whose content is the given CBOR data item.
// The bytes must be a single well-formed item in canonical form, so that equal
// values always produce equal leaf digests.
func NewLeafCBOR(content []byte) (*Envelope, error) {
	if err := decMode.Wellformed(content); err != nil {
		return nil, wrapError(KindMalformedInput, "ENV-LEAF-002", "leaf content is not well-formed CBOR", err)
	}
	if err := checkCanonical(content); err != nil {
		return nil, err
	}
	return newLeaf(append([]byte(nil), content...)), nil
}

// checkCanonical re-encodes content through the deterministic encoder and
// requires the result to match byte for byte.
func checkCanonical(content []byte) error {
	item := content
	if tag, ok := leafTag(content); ok && tag == tagDate {
		// Epoch times decode through time.Time, which does not round-trip
		// fractional seconds exactly; compare the tag head and the number instead.
		if content[0] != 0xc1 {
			return newError(KindMalformedInput, "ENV-LEAF-005", "leaf content is not canonical CBOR")
		}
		item = content[1:]
	}
	var v any
	if err := decMode.Unmarshal(item, &v); err != nil {
		return wrapError(KindMalformedInput, "ENV-LEAF-005", "leaf content is not canonical CBOR", err)
	}
	b, err := encMode.Marshal(v)
	if err != nil || !bytes.Equal(b, item) {
		return wrapError(KindMalformedInput, "ENV-LEAF-005", "leaf content is not canonical CBOR", err)
	}
	return nil
}

func newTaggedLeaf(tag uint64, content any) (*Envelope, error) {
	return NewLeaf(cbor.Tag{Number: tag, Content: content})
}

// leafTag returns the outer CBOR tag number of a leaf, if any.
func leafTag(content []byte) (uint64, bool) {
	if len(content) == 0 || content[0]>>5 != 6 {
		return 0, false
	}
	var raw cbor.RawTag
	if err := decMode.Unmarshal(content, &raw); err != nil {
		return 0, false
	}
	return raw.Number, true
}

// Extract decodes the subject of e, which must be a leaf, into a value of type T.
func Extract[T any](e *Envelope) (T, error) {
	var out T
	if e == nil {
		return out, newError(KindInvalidStructure, "ENV-LEAF-003", "nil envelope")
	}
	leaf := e.Subject()
	if leaf.kind != CaseLeaf {
		return out, newError(KindInvalidStructure, "ENV-LEAF-003", "subject is not a leaf")
	}
	if err := decMode.Unmarshal(leaf.leaf, &out); err != nil {
		return out, wrapError(KindMalformedInput, "ENV-LEAF-004", "leaf content does not decode to the requested type", err)
	}
	return out, nil
}
