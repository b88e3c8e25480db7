package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/envelope/cidutil"
	"xdao.co/envelope/config"
	"xdao.co/envelope/digest"
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/bundle"
	"xdao.co/envelope/storage/casregistry"

	_ "xdao.co/envelope/storage/grpccas"
	_ "xdao.co/envelope/storage/ipfs"
	_ "xdao.co/envelope/storage/localfs"
	_ "xdao.co/envelope/storage/rediscas"
)

// storeFlags select the block store for every store subcommand.
type storeFlags struct {
	backend string
	dir     string
}

func (a *app) storeCmd() *cobra.Command {
	var sf storeFlags
	cmd := groupCmd("store", "Store envelopes in a content-addressed block store")
	cmd.PersistentFlags().StringVar(&sf.backend, "backend", "", "Configured backend (name or id) to use first")
	cmd.PersistentFlags().StringVar(&sf.dir, "dir", "", "Use a localfs store at this directory instead of the configured backends")

	cmd.AddCommand(
		a.storePutCmd(&sf),
		a.storeGetCmd(&sf),
		a.storeFindCmd(&sf),
		a.storeListCmd(&sf),
		a.storeExportCmd(&sf),
		a.storeImportCmd(&sf),
	)
	return cmd
}

// openStore opens the CAS selected by sf. The caller must call the returned close function.
func (a *app) openStore(sf *storeFlags) (storage.CAS, func() error, error) {
	sc := a.cfg.Store
	if sf.dir != "" {
		if sf.backend != "" {
			return nil, nil, usagef("--dir and --backend are mutually exclusive")
		}
		sc = config.StoreConfig{Backends: []config.BackendConfig{{
			Name:    "localfs",
			Options: casregistry.Options{"dir": sf.dir},
		}}}
	}
	if len(sc.Backends) == 0 {
		return nil, nil, usagef("no store configured: pass --dir or set store.backends in the config")
	}
	cas, closeFn, err := sc.OpenStore(casregistry.UsageCLI, sf.backend)
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("store opened", zap.Int("backends", len(sc.Backends)), zap.String("write_policy", sc.WritePolicy))
	return cas, closeFn, nil
}

func (a *app) withStore(sf *storeFlags, fn func(storage.CAS) error) (err error) {
	cas, closeFn, err := a.openStore(sf)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(cas)
}

func parseCIDArg(s string) (cid.Cid, error) {
	id, err := cidutil.Parse(s)
	if err != nil {
		return cid.Undef, usagef("invalid CID %q: %v", s, err)
	}
	return id, nil
}

func (a *app) storePutCmd(sf *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "put [ENVELOPE]",
		Short: "Store an envelope and print its block CID",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			return a.withStore(sf, func(cas storage.CAS) error {
				id, err := storage.EnvelopeStore{CAS: cas}.Put(e)
				if err != nil {
					return err
				}
				a.log.Info("stored envelope", zap.String("cid", id.String()), zap.String("digest", e.Digest().Short()))
				return a.printLine(id.String())
			})
		},
	}
}

func (a *app) storeGetCmd(sf *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <CID>",
		Short: "Load a stored envelope by block CID",
		Args:  argsRange(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCIDArg(args[0])
			if err != nil {
				return err
			}
			return a.withStore(sf, func(cas storage.CAS) error {
				e, err := storage.EnvelopeStore{CAS: cas}.Get(id)
				if err != nil {
					return err
				}
				return a.printEnvelope(e)
			})
		},
	}
}

func (a *app) storeFindCmd(sf *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "find <DIGEST>",
		Short: "List block CIDs of every stored view with this envelope digest",
		Args:  argsRange(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := digest.Parse(args[0])
			if err != nil {
				return usagef("%v", err)
			}
			return a.withStore(sf, func(cas storage.CAS) error {
				ids, err := storage.EnvelopeStore{CAS: cas}.Find(d)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if err := a.printLine(id.String()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) storeListCmd(sf *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every block CID in the store",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(sf, func(cas storage.CAS) error {
				l, ok := cas.(storage.Lister)
				if !ok {
					return storage.ErrNoList
				}
				ids, err := l.List()
				if err != nil {
					return err
				}
				for _, id := range ids {
					if err := a.printLine(id.String()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) storeExportCmd(sf *storeFlags) *cobra.Command {
	var outPath string
	var index bool
	cmd := &cobra.Command{
		Use:   "export --out <FILE> <CID>...",
		Short: "Write blocks to a deterministic TAR bundle",
		Args:  argsRange(1, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return usagef("missing --out")
			}
			ids := make([]cid.Cid, 0, len(args))
			for _, s := range args {
				id, err := parseCIDArg(s)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return a.withStore(sf, func(cas storage.CAS) (err error) {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = cerr
					}
				}()
				if err := bundle.Export(f, cas, ids, bundle.ExportOptions{IncludeIndex: index}); err != nil {
					return err
				}
				a.log.Info("bundle exported", zap.String("path", outPath), zap.Int("blocks", len(ids)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Bundle file to write")
	cmd.Flags().BoolVar(&index, "index", true, "Include index.json")
	return cmd
}

func (a *app) storeImportCmd(sf *storeFlags) *cobra.Command {
	var requireEnvelopes bool
	cmd := &cobra.Command{
		Use:   "import <FILE>",
		Short: "Load a TAR bundle into the store and print the imported CIDs",
		Args:  argsRange(1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return usagef("bundle %s does not exist", args[0])
				}
				return err
			}
			defer f.Close()
			return a.withStore(sf, func(cas storage.CAS) error {
				ids, err := bundle.ImportWithOptions(f, cas, bundle.ImportOptions{RequireEnvelopes: requireEnvelopes})
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				for _, id := range ids {
					if err := a.printLine(id.String()); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&requireEnvelopes, "require-envelopes", false, "Reject blocks that do not decode as envelopes")
	return cmd
}
