package ipfs

import (
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI (offline)",
		Usage:       casregistry.UsageCLI,
		Keys:        []string{"bin", "repo"},
		Open: func(opts casregistry.Options) (storage.CAS, func() error, error) {
			return New(Options{Bin: opts.String("bin", ""), RepoPath: opts.String("repo", "")}), nil, nil
		},
	})
}
