package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"xdao.co/envelope/cidutil"
	"xdao.co/envelope/envelope"
	"xdao.co/envelope/storage"
	"xdao.co/envelope/storage/casregistry"
	"xdao.co/envelope/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		cas, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return cas
	})
}

func TestLocalFS_RejectMutationByOverwrite(t *testing.T) {
	cas, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := envelope.New("original").Encode()
	id, err := cas.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	path := cas.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := cas.Get(id); err != storage.ErrCIDMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, storage.ErrCIDMismatch)
	}
	if _, err := cas.Put(orig); err != storage.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, storage.ErrImmutable)
	}
	if !cidutil.Verify(id, orig) {
		t.Fatalf("CID no longer matches the original bytes")
	}
}

func TestLocalFS_ListIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	cas, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	id, err := cas.Put(envelope.New("listed").Encode())
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "zz"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "zz", "junk"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := cas.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 1 || !ids[0].Equals(id) {
		t.Fatalf("unexpected listing: %v", ids)
	}
}

func TestLocalFS_Registered(t *testing.T) {
	if _, _, err := casregistry.Open("localfs", casregistry.UsageCLI, casregistry.Options{}); err == nil {
		t.Fatalf("expected missing dir error")
	}
	cas, closeFn, err := casregistry.Open("localfs", casregistry.UsageDaemon, casregistry.Options{"dir": t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if closeFn != nil {
		t.Fatalf("localfs needs no close function")
	}
	if _, ok := cas.(*CAS); !ok {
		t.Fatalf("unexpected backend type %T", cas)
	}
}
