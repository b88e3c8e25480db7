package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestSumParseVerify(t *testing.T) {
	data := []byte("envelope block")
	id, err := Sum(data)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if String(data) != id.String() {
		t.Fatalf("String and Sum disagree")
	}
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Equals(id) {
		t.Fatalf("Parse round trip mismatch")
	}
	if !Verify(id, data) || Verify(id, []byte("other")) {
		t.Fatalf("Verify gave the wrong answer")
	}
}

func TestParseRejectsOtherCIDs(t *testing.T) {
	mh, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if _, err := Parse(cid.NewCidV0(mh).String()); err == nil {
		t.Fatalf("expected CIDv0 to be rejected")
	}
	if _, err := Parse(cid.NewCidV1(cid.DagCBOR, mh).String()); err == nil {
		t.Fatalf("expected non-raw codec to be rejected")
	}
	sha512, err := multihash.Sum([]byte("x"), multihash.SHA2_512, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if _, err := Parse(cid.NewCidV1(cid.Raw, sha512).String()); err == nil {
		t.Fatalf("expected sha2-512 to be rejected")
	}
	if _, err := Parse("not a cid"); err == nil {
		t.Fatalf("expected garbage to be rejected")
	}
}
