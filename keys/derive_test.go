package keys

import (
	"strings"
	"testing"

	"xdao.co/envelope/signing"
)

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	root := make([]byte, signing.SeedSize)
	for i := range root {
		root[i] = byte(i)
	}

	a, err := DeriveRoleSeed(root, "approver")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, err := DeriveRoleSeed(root, "approver")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected deterministic derivation")
	}

	c, err := DeriveRoleSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if string(a) == string(c) {
		t.Fatalf("expected different roles to derive different seeds")
	}
	if _, err := DeriveRoleSeed(root[:16], "issuer"); err == nil {
		t.Fatalf("expected error for short root seed")
	}
	if _, err := DeriveRoleSeed(root, "bad role"); err == nil {
		t.Fatalf("expected error for invalid role")
	}
}

func TestPublicKeyFromSeedFormat(t *testing.T) {
	seed := make([]byte, signing.SeedSize)
	for i := range seed {
		seed[i] = 0x42
	}
	for _, scheme := range signing.Schemes() {
		pub, err := PublicKeyFromSeed(scheme, seed)
		if err != nil {
			t.Fatalf("%s: %v", scheme, err)
		}
		if !strings.HasPrefix(pub, string(scheme)+":") {
			t.Fatalf("expected %s prefix, got %q", scheme, pub)
		}
		if _, err := signing.ParsePublicKey(pub); err != nil {
			t.Fatalf("%s: exported key does not parse: %v", scheme, err)
		}
	}
}
