// Package digest provides the fixed-size digest that identifies every envelope node.
//
// A Digest is a SHA-256 output. Digests render as lowercase hex, or as an IPFS-style
// CIDv1 whose multihash carries the digest unchanged (sha2-256, 32 bytes).
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Size is the length of a digest in bytes.
const Size = sha256.Size

// Digest is a SHA-256 digest.
type Digest [Size]byte

// Sum returns SHA-256 over the concatenation of parts.
func Sum(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

// FromBytes copies a 32-byte slice into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("digest: expected %d bytes, got %d", Size, len(b))
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) Bytes() []byte { return append([]byte(nil), d[:]...) }

func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

// Short returns the first four bytes as hex, for log lines and summaries.
func (d Digest) Short() string { return hex.EncodeToString(d[:4]) }

func (d Digest) String() string { return d.Hex() }

func (d Digest) IsZero() bool { return d == Digest{} }

// Compare orders digests lexicographically by byte value.
func (d Digest) Compare(other Digest) int { return bytes.Compare(d[:], other[:]) }

// Multihash wraps the digest as a sha2-256 multihash without rehashing.
func (d Digest) Multihash() multihash.Multihash {
	mh, err := multihash.Encode(d[:], multihash.SHA2_256)
	if err != nil {
		// Encode only fails for unknown codes or mismatched lengths.
		return nil
	}
	return mh
}

// CID returns a CIDv1 (raw codec) carrying the digest as its multihash.
//
// The multihash is the envelope digest itself, not a hash of any one serialized block:
// elided and unelided forms of a document share this CID.
func (d Digest) CID() cid.Cid {
	return cid.NewCidV1(cid.Raw, d.Multihash())
}

// Parse accepts either 64 hex characters or a CID string whose multihash is a 32-byte sha2-256.
func Parse(s string) (Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Digest{}, errors.New("digest: empty input")
	}
	if len(s) == hex.EncodedLen(Size) {
		if b, err := hex.DecodeString(s); err == nil {
			return FromBytes(b)
		}
	}
	id, err := cid.Decode(s)
	if err != nil {
		return Digest{}, fmt.Errorf("digest: not hex or CID: %w", err)
	}
	return FromCID(id)
}

// FromCID extracts the digest from a CID produced by Digest.CID.
func FromCID(id cid.Cid) (Digest, error) {
	if !id.Defined() {
		return Digest{}, errors.New("digest: undefined CID")
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return Digest{}, fmt.Errorf("digest: invalid multihash: %w", err)
	}
	if dec.Code != multihash.SHA2_256 {
		return Digest{}, fmt.Errorf("digest: unsupported multihash %s", dec.Name)
	}
	return FromBytes(dec.Digest)
}
