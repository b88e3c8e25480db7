package localfs

import (
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem block store (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Keys:        []string{"dir"},
		Open: func(opts casregistry.Options) (storage.CAS, func() error, error) {
			dir, err := opts.Require("localfs", "dir")
			if err != nil {
				return nil, nil, err
			}
			cas, err := New(dir)
			if err != nil {
				return nil, nil, err
			}
			return cas, nil, nil
		},
	})
}
