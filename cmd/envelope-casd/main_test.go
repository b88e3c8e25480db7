package main

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/envelope/config"
	"xdao.co/envelope/envelope"
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/grpccas"
)

func TestListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--list-backends"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "localfs")
	assert.Contains(t, out.String(), "redis")
	assert.NotContains(t, out.String(), "ipfs")
}

func TestBadInvocation(t *testing.T) {
	for _, args := range [][]string{
		{"--bogus"},
		{"extra-arg"},
		{"--listen", "127.0.0.1:0"},
		{"--dir", t.TempDir(), "--backend", "redis"},
	} {
		var out, errOut bytes.Buffer
		assert.Equal(t, 2, run(context.Background(), args, &out, &errOut), "args %q: %s", args, errOut.String())
	}
}

func TestServeOverBufconn(t *testing.T) {
	opts := options{dir: t.TempDir(), requireEnvelopes: true, maxMsgBytes: 1 << 20}
	cas, closeFn, err := openBackend(opts, config.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, lis, newGRPCServer(cas, opts, zap.NewNop()), zap.NewNop()) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	client, err := grpccas.Dial("passthrough:///bufnet", grpccas.DialOptions{
		Timeout: 2 * time.Second,
		Extra:   []grpc.DialOption{grpc.WithContextDialer(dialer)},
	})
	require.NoError(t, err)
	defer client.Close()

	store := storage.EnvelopeStore{CAS: client}
	doc := envelope.New("Alice").AddAssertion("knows", "Bob")
	id, err := store.Put(doc)
	require.NoError(t, err)
	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, doc.Digest(), got.Digest())
	assert.True(t, cas.Has(id), "block must reach the served backend")

	_, err = client.Put([]byte("not an envelope"))
	assert.ErrorIs(t, err, storage.ErrNotEnvelope)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
