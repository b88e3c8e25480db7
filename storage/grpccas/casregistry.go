package grpccas

import (
	"time"

	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "gRPC block store client (talks to envelope-casd)",
		Usage:       casregistry.UsageCLI,
		Keys:        []string{"target", "dial_timeout", "timeout", "max_msg_bytes"},
		Open: func(opts casregistry.Options) (storage.CAS, func() error, error) {
			target, err := opts.Require("grpc", "target")
			if err != nil {
				return nil, nil, err
			}
			dialTimeout, err := opts.Duration("dial_timeout", 5*time.Second)
			if err != nil {
				return nil, nil, err
			}
			timeout, err := opts.Duration("timeout", 0)
			if err != nil {
				return nil, nil, err
			}
			maxMsg, err := opts.Int("max_msg_bytes", 0)
			if err != nil {
				return nil, nil, err
			}
			client, err := Dial(target, DialOptions{Timeout: dialTimeout, MaxMsgBytes: maxMsg})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = timeout
			return client, client.Close, nil
		},
	})
}
