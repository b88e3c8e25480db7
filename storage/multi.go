package storage

import (
	"errors"
	"sort"

	"github.com/ipfs/go-cid"
)

// MultiCAS reads through several backends in slice order and writes to the first.
//
// The order is fixed by the caller; config.OpenStore uses the order backends are listed in
// the configuration file.
type MultiCAS struct {
	Adapters []CAS
}

var (
	_ CAS    = MultiCAS{}
	_ Lister = MultiCAS{}
)

func (m MultiCAS) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, errors.New("storage: MultiCAS has no adapters")
	}
	return m.Adapters[0].Put(bytes)
}

func (m MultiCAS) Get(id cid.Cid) ([]byte, error) {
	return getFirst(id, m.Adapters)
}

func (m MultiCAS) Has(id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(id) {
			return true
		}
	}
	return false
}

// List merges the listings of every adapter that implements Lister.
func (m MultiCAS) List() ([]cid.Cid, error) {
	return listAll(m.Adapters)
}

func getFirst(id cid.Cid, adapters []CAS) ([]byte, error) {
	for _, cas := range adapters {
		if cas == nil {
			continue
		}
		b, err := cas.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func listAll(adapters []CAS) ([]cid.Cid, error) {
	seen := map[cid.Cid]struct{}{}
	var listed bool
	for _, cas := range adapters {
		l, ok := cas.(Lister)
		if !ok {
			continue
		}
		listed = true
		ids, err := l.List()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	if !listed {
		return nil, ErrNoList
	}
	return SortCIDs(seen), nil
}

// SortCIDs returns the members of set ordered by their string form.
func SortCIDs(set map[cid.Cid]struct{}) []cid.Cid {
	out := make([]cid.Cid, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
