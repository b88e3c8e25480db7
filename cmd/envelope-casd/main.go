// Command envelope-casd serves a block store over gRPC (service
// xdao.envelope.storage.v1.BlockStore) so envelope CLIs on other hosts can use it through
// the "grpc" backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/envelope/config"
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
	"xdao.co/envelope/storage/grpccas"

	_ "xdao.co/envelope/storage/localfs"
	_ "xdao.co/envelope/storage/rediscas"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	listen           string
	configPath       string
	backend          string
	dir              string
	listBackends     bool
	requireEnvelopes bool
	maxMsgBytes      int
	verbose          bool
}

// run returns 0 after a clean shutdown, 1 on runtime failure and 2 on bad invocation.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	var opts options
	code := 0
	cmd := &cobra.Command{
		Use:           "envelope-casd",
		Short:         "Serve an envelope block store over gRPC",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.listBackends {
				for _, b := range casregistry.List(casregistry.UsageDaemon) {
					if b.Description == "" {
						fmt.Fprintln(out, b.Name)
						continue
					}
					fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
				}
				return nil
			}
			if err := serve(ctx, opts); err != nil {
				code = 1
				if errors.Is(err, errUsage) {
					code = 2
				}
				return err
			}
			return nil
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	f := cmd.Flags()
	f.StringVar(&opts.listen, "listen", "127.0.0.1:7777", "Listen address")
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file (store and logging sections)")
	f.StringVar(&opts.backend, "backend", "", "Configured backend (name or id) to use first")
	f.StringVar(&opts.dir, "dir", "", "Serve a localfs store at this directory instead of the configured backends")
	f.BoolVar(&opts.listBackends, "list-backends", false, "List supported backends and exit")
	f.BoolVar(&opts.requireEnvelopes, "require-envelopes", false, "Reject blocks that do not decode as envelopes")
	f.IntVar(&opts.maxMsgBytes, "max-msg-bytes", 16<<20, "Maximum gRPC message size")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(errOut, "envelope-casd: %v\n", err)
		if code == 0 {
			code = 2
		}
		return code
	}
	return code
}

var errUsage = errors.New("usage")

// openBackend resolves the store to serve from flags and configuration.
func openBackend(opts options, cfg *config.Config) (storage.CAS, func() error, error) {
	sc := cfg.Store
	if opts.dir != "" {
		if opts.backend != "" {
			return nil, nil, fmt.Errorf("%w: --dir and --backend are mutually exclusive", errUsage)
		}
		sc = config.StoreConfig{Backends: []config.BackendConfig{{
			Name:    "localfs",
			Options: casregistry.Options{"dir": opts.dir},
		}}}
	}
	if len(sc.Backends) == 0 {
		return nil, nil, fmt.Errorf("%w: no store configured: pass --dir or set store.backends", errUsage)
	}
	return sc.OpenStore(casregistry.UsageDaemon, opts.backend)
}

func newGRPCServer(cas storage.CAS, opts options, log *zap.Logger) *grpc.Server {
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(opts.maxMsgBytes),
		grpc.MaxSendMsgSize(opts.maxMsgBytes),
	)
	grpccas.RegisterBlockStoreServer(s, &grpccas.Server{
		CAS:              cas,
		RequireEnvelopes: opts.requireEnvelopes,
		Logger:           log,
	})
	return s
}

func serve(ctx context.Context, opts options) error {
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	log, err := cfg.Logging.Build(opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cas, closeFn, err := openBackend(opts, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			log.Warn("close backend", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", opts.listen)
	if err != nil {
		return err
	}
	return serveListener(ctx, lis, newGRPCServer(cas, opts, log), log)
}

// serveListener runs s on lis until ctx is done, then stops gracefully.
func serveListener(ctx context.Context, lis net.Listener, s *grpc.Server, log *zap.Logger) error {
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(lis) }()
	log.Info("listening", zap.String("addr", lis.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		s.GracefulStop()
		<-errc
		return nil
	}
}
