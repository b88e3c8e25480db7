// Package envelope implements digest-addressed envelope trees with selective disclosure.
//
// An envelope is an immutable tree of leaves, wrapped envelopes, nodes (a subject plus a set
// of assertions), assertions (predicate/object pairs), known values, and placeholders. Every
// node carries a SHA-256 digest fixed at construction:
//
//	leaf        H(0x00 || cbor)
//	node        H(0x01 || subject || sorted unique assertion digests)
//	wrapped     H(0x02 || inner)
//	assertion   H(0x03 || predicate || object)
//	known value H(0x04 || uint64 big-endian)
//
// Elided, encrypted, and compressed placeholders keep the digest of the subtree they replace,
// so any part of a tree can be hidden without changing the digest of the root. A holder can
// then hand out a partial view (see Obscure and MakeProof) that a verifier checks against a
// previously trusted root digest (VerifyProof).
//
// Errors returned by this package are *Error values; branch on Kind and RuleID.
//
// The package performs no I/O beyond reading randomness, and all values are safe for
// concurrent use.
package envelope
