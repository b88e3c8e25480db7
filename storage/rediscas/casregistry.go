package rediscas

import (
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "redis",
		Description: "Redis block store (one key per block)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Keys:        []string{"addr", "password", "db", "prefix", "timeout"},
		Open: func(opts casregistry.Options) (storage.CAS, func() error, error) {
			cfg, err := configFromOptions(opts)
			if err != nil {
				return nil, nil, err
			}
			cas, err := New(cfg)
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}

func configFromOptions(opts casregistry.Options) (Config, error) {
	addr, err := opts.Require("redis", "addr")
	if err != nil {
		return Config{}, err
	}
	db, err := opts.Int("db", 0)
	if err != nil {
		return Config{}, err
	}
	timeout, err := opts.Duration("timeout", defaultTimeout)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Address:  addr,
		Password: opts.String("password", ""),
		DB:       db,
		Prefix:   opts.String("prefix", defaultPrefix),
		Timeout:  timeout,
	}, nil
}
