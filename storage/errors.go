package storage

import "errors"

// Sentinels shared by every block store. Backends return them unwrapped or wrapped with %w;
// the gRPC transport maps each one to a status code and back.
var (
	// ErrNotFound: no block is stored under the CID.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidCID: the CID is not a cidutil block CID (CIDv1, raw codec, sha2-256).
	ErrInvalidCID = errors.New("storage: invalid cid")
	// ErrCIDMismatch: stored bytes no longer hash to their CID, or replicas disagree.
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	// ErrImmutable: a write would replace an existing block with different bytes.
	ErrImmutable = errors.New("storage: immutable object mismatch")
	// ErrNotEnvelope: the block does not decode as an envelope wire encoding.
	ErrNotEnvelope = errors.New("storage: block is not an envelope")
	ErrNoList      = errors.New("storage: backend cannot list blocks")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorrupt reports whether err means a store handed back bytes it must not have: a CID
// mismatch or an overwritten block. Such errors are never skipped when scanning a store.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCIDMismatch) || errors.Is(err, ErrImmutable)
}
