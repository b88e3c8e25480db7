package testkit

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/envelope/cidutil"
	"xdao.co/envelope/storage"
)

// MemCAS is an in-memory CAS for tests and for in-process daemons.
type MemCAS struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

var (
	_ storage.CAS    = (*MemCAS)(nil)
	_ storage.Lister = (*MemCAS)(nil)
)

func NewMemCAS() *MemCAS {
	return &MemCAS{blocks: map[cid.Cid][]byte{}}
}

func (m *MemCAS) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.Sum(bytes)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[id]; !ok {
		m.blocks[id] = append([]byte(nil), bytes...)
	}
	return id, nil
}

func (m *MemCAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemCAS) Has(id cid.Cid) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[id]
	return ok
}

func (m *MemCAS) List() ([]cid.Cid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[cid.Cid]struct{}, len(m.blocks))
	for id := range m.blocks {
		set[id] = struct{}{}
	}
	return storage.SortCIDs(set), nil
}
