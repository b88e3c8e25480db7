// Package casregistry maps backend names from the store configuration to the block stores
// that hold encoded envelopes.
//
// A backend package registers itself from init, and a binary enables it with a blank
// import. config.StoreConfig then opens each configured backend by name, passing its
// options map through unchanged.
package casregistry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"xdao.co/envelope/storage"
)

// Backend describes one kind of envelope block store.
//
// The CAS returned by Open must honour the storage.CAS contract for envelope blocks: Put
// stores the wire bytes verbatim under their cidutil block CID, Get re-hashes what it reads
// and fails with storage.ErrCIDMismatch rather than return a block that no longer matches,
// and an absent block is storage.ErrNotFound. Backends never decode envelopes themselves.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// Keys lists every option key Open reads. Open rejects any other key, so a typo in
	// store.backends[].options fails loudly instead of being ignored.
	Keys []string

	// Open connects to the store. The returned close function may be nil.
	Open func(opts Options) (storage.CAS, func() error, error)
}

var registry = struct {
	sync.RWMutex
	byName map[string]Backend
}{byName: map[string]Backend{}}

// Register adds b. Names are unique per process.
func Register(b Backend) error {
	switch {
	case b.Name == "":
		return fmt.Errorf("casregistry: backend name is required")
	case b.Open == nil:
		return fmt.Errorf("casregistry: backend %q has no Open", b.Name)
	case b.Usage == 0:
		return fmt.Errorf("casregistry: backend %q has no Usage", b.Name)
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.byName[b.Name]; dup {
		return fmt.Errorf("casregistry: backend %q registered twice", b.Name)
	}
	registry.byName[b.Name] = b
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends usable by usage, ordered by name.
func List(usage Usage) []Backend {
	registry.RLock()
	out := make([]Backend, 0, len(registry.byName))
	for _, b := range registry.byName {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	registry.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Names(usage Usage) []string {
	bs := List(usage)
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}
	return names
}

// Open opens the block store registered as name after checking usage and option keys.
// The returned close function is never nil.
func Open(name string, usage Usage, opts Options) (storage.CAS, func() error, error) {
	registry.RLock()
	b, ok := registry.byName[name]
	registry.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Names(usage), ", "))
	}
	if !b.Usage.allows(usage) {
		return nil, nil, fmt.Errorf("backend %q not supported in this binary", name)
	}
	if err := b.checkKeys(opts); err != nil {
		return nil, nil, err
	}
	cas, closeFn, err := b.Open(opts)
	if err != nil {
		return nil, nil, err
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return cas, closeFn, nil
}

func (b Backend) checkKeys(opts Options) error {
	var unknown []string
	for k := range opts {
		known := false
		for _, want := range b.Keys {
			if k == want {
				known = true
				break
			}
		}
		if !known {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("backend %q: unknown option(s) %s (accepted: %s)",
		b.Name, strings.Join(unknown, ", "), strings.Join(b.Keys, ", "))
}
