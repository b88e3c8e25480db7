package config

import (
	"errors"
	"fmt"

	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
)

// Write policies for StoreConfig.WritePolicy.
const (
	// WriteFirst writes to the first backend only; reads fall back in order.
	WriteFirst = "first"
	// WriteAll writes to every backend and requires them to agree on the CID.
	WriteAll = "all"
)

// StoreConfig selects the block store backends. Backends must be linked into the binary
// (blank imports) for casregistry to open them.
type StoreConfig struct {
	WritePolicy string          `yaml:"write_policy"`
	Backends    []BackendConfig `yaml:"backends"`
}

type BackendConfig struct {
	// Name is the casregistry backend name ("localfs", "redis", "grpc", "ipfs").
	Name string `yaml:"name"`
	// ID is an optional alias used in error messages and replication results. Defaults to Name.
	ID      string              `yaml:"id"`
	Options casregistry.Options `yaml:"options"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Validate allows an empty backend list; OpenStore rejects it.
func (s StoreConfig) Validate() error {
	seen := make(map[string]struct{}, len(s.Backends))
	for _, b := range s.Backends {
		if b.Name == "" {
			return errors.New("config: store backend name is required")
		}
		if _, ok := seen[b.id()]; ok {
			return fmt.Errorf("config: duplicate store backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	switch s.WritePolicy {
	case "", WriteFirst, WriteAll:
		return nil
	default:
		return fmt.Errorf("config: invalid store.write_policy %q", s.WritePolicy)
	}
}

// OpenStore opens every configured backend and combines them per the write policy. When
// preferred names a backend (by ID or name) it is moved to the front. The returned close
// function closes the backends in reverse order.
func (s StoreConfig) OpenStore(usage casregistry.Usage, preferred string) (storage.CAS, func() error, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	if len(s.Backends) == 0 {
		return nil, nil, errors.New("config: no store backends configured")
	}

	ordered := append([]BackendConfig(nil), s.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferred || ordered[i].ID == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("config: store backend %q not configured", preferred)
		}
		b := ordered[idx]
		copy(ordered[1:idx+1], ordered[0:idx])
		ordered[0] = b
	}

	named := make([]storage.NamedCAS, 0, len(ordered))
	var closers []func() error
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	for _, b := range ordered {
		cas, closeFn, err := casregistry.Open(b.Name, usage, b.Options)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("config: open store backend %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedCAS{Name: b.id(), CAS: cas})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].CAS, closeAll, nil
	}
	if s.WritePolicy == WriteAll {
		return storage.ReplicatingCAS{Backends: named}, closeAll, nil
	}
	adapters := make([]storage.CAS, 0, len(named))
	for _, n := range named {
		adapters = append(adapters, n.CAS)
	}
	return storage.MultiCAS{Adapters: adapters}, closeAll, nil
}
