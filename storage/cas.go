// Package storage keeps encoded envelopes in content-addressed stores.
//
// Blocks are addressed by cidutil block CIDs over the exact stored bytes. The envelope
// engine never imports this package; EnvelopeStore is the only place that encodes and
// decodes.
package storage

import "github.com/ipfs/go-cid"

// CAS is a minimal content-addressable block store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored blocks MUST be immutable.
// - CIDs MUST be the cidutil block CID of the bytes written.
// - Get MUST return ErrNotFound when the CID is absent.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}

// Lister is implemented by backends that can enumerate their blocks.
// List returns CIDs in ascending string order.
type Lister interface {
	List() ([]cid.Cid, error)
}
