package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/envelope/envelope"
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/localfs"
	"xdao.co/envelope/storage/testkit"
)

func startServer(t *testing.T, srv *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterBlockStoreServer(gs, srv)
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	client, err := Dial("passthrough:///bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		cas, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		return startServer(t, &Server{CAS: cas})
	})
}

func TestGRPCCAS_EnvelopeRoundTrip(t *testing.T) {
	client := startServer(t, &Server{CAS: testkit.NewMemCAS(), RequireEnvelopes: true})
	store := storage.EnvelopeStore{CAS: client}

	doc := envelope.New("Alice").AddAssertion("knows", "Bob")
	id, err := store.Put(doc)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Digest() != doc.Digest() {
		t.Fatalf("digest changed in transit")
	}
	found, err := store.Find(doc.Digest())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(found) != 1 || !found[0].Equals(id) {
		t.Fatalf("unexpected Find result %v", found)
	}
}

func TestGRPCCAS_RejectsNonEnvelopes(t *testing.T) {
	client := startServer(t, &Server{CAS: testkit.NewMemCAS(), RequireEnvelopes: true})
	if _, err := client.Put([]byte("plain bytes")); !errors.Is(err, storage.ErrNotEnvelope) {
		t.Fatalf("expected ErrNotEnvelope, got %v", err)
	}
}

type noListCAS struct{ storage.CAS }

func TestGRPCCAS_ListUnsupported(t *testing.T) {
	client := startServer(t, &Server{CAS: noListCAS{testkit.NewMemCAS()}})
	if _, err := client.List(); !errors.Is(err, storage.ErrNoList) {
		t.Fatalf("expected ErrNoList, got %v", err)
	}
}
