package envelope_test

import (
	"bytes"
	"strings"
	"testing"

	"xdao.co/envelope/envelope"
	"xdao.co/envelope/signing"
	"xdao.co/envelope/sskr"
)

func mustSigner(t *testing.T, scheme signing.Scheme, fill byte) *signing.PrivateKey {
	t.Helper()
	k, err := signing.NewPrivateKey(scheme, bytes.Repeat([]byte{fill}, signing.SeedSize))
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return k
}

func TestSignatures_TwoSignersFormat(t *testing.T) {
	s1 := mustSigner(t, signing.Ed25519, 1)
	s2 := mustSigner(t, signing.Secp256k1, 2)

	e := envelope.New("Alice").AddAssertion("knows", "Bob")
	once, err := e.AddSignature(s1)
	if err != nil {
		t.Fatalf("AddSignature s1: %v", err)
	}
	twice, err := once.AddSignature(s2)
	if err != nil {
		t.Fatalf("AddSignature s2: %v", err)
	}

	want := strings.Join([]string{
		`"Alice" [`,
		`    "knows": "Bob"`,
		`    'signed': Signature`,
		`    'signed': Signature`,
		`]`,
	}, "\n")
	if got := twice.Format(); got != want {
		t.Fatalf("unexpected format:\n%s\nwant:\n%s", got, want)
	}

	for _, v := range []envelope.Verifier{s1.Public(), s2.Public()} {
		if _, err := twice.VerifySignatureFrom(v); err != nil {
			t.Fatalf("VerifySignatureFrom: %v", err)
		}
	}
	stranger := mustSigner(t, signing.Ed25519, 3)
	if _, err := twice.VerifySignatureFrom(stranger.Public()); !envelope.IsKind(err, envelope.KindVerificationFailed) {
		t.Fatalf("expected VerificationFailed, got %v", err)
	}
}

func TestSignatures_CoverSubjectDigest(t *testing.T) {
	s := mustSigner(t, signing.Ed25519, 4)
	signed, err := envelope.New("Alice").AddSignature(s)
	if err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	// More assertions on the same subject keep the signature valid.
	extended := signed.AddAssertion("age", 30)
	if !extended.HasSignatureFrom(s.Public()) {
		t.Fatalf("signature must survive added assertions")
	}
	// Moving the signature to another subject invalidates it.
	moved, err := envelope.New("Mallory").AddAssertions(signed.Assertions()...)
	if err != nil {
		t.Fatalf("AddAssertions: %v", err)
	}
	if moved.HasSignatureFrom(s.Public()) {
		t.Fatalf("signature must not verify on a different subject")
	}
	// Wrapping first makes the signature cover the whole envelope.
	wrapped, err := envelope.New("Alice").AddAssertion("knows", "Bob").Wrap().AddSignature(s)
	if err != nil {
		t.Fatalf("AddSignature wrapped: %v", err)
	}
	if !wrapped.HasSignatureFrom(s.Public()) {
		t.Fatalf("wrapped signature did not verify")
	}
}

func TestSignatures_Threshold(t *testing.T) {
	a := mustSigner(t, signing.Ed25519, 5)
	b := mustSigner(t, signing.Dilithium3, 6)
	c := mustSigner(t, signing.Secp256k1, 7)
	signed, err := envelope.New("contract").AddSignatures(a, b)
	if err != nil {
		t.Fatalf("AddSignatures: %v", err)
	}
	vs := []envelope.Verifier{a.Public(), b.Public(), c.Public()}
	if _, err := signed.VerifySignaturesFromThreshold(vs, 2); err != nil {
		t.Fatalf("2-of-3 should pass: %v", err)
	}
	if _, err := signed.VerifySignaturesFromThreshold(vs, 3); !envelope.IsKind(err, envelope.KindVerificationFailed) {
		t.Fatalf("3-of-3 should fail, got %v", err)
	}
	if _, err := signed.VerifySignaturesFromThreshold(vs[:2], 0); err != nil {
		t.Fatalf("all of two should pass: %v", err)
	}
}

func TestSignatures_SurviveElision(t *testing.T) {
	s := mustSigner(t, signing.Ed25519, 8)
	e, err := envelope.New("Alice").AddAssertion("knows", "Bob").AddAssertion("ssn", "123").AddSignature(s)
	if err != nil {
		t.Fatalf("AddSignature: %v", err)
	}
	redacted := e.ElideRemovingTarget(envelope.NewAssertion("ssn", "123"))
	if redacted.Digest() != e.Digest() || !redacted.HasSignatureFrom(s.Public()) {
		t.Fatalf("signature must survive elision of other assertions")
	}
}

func TestSSKR_ThreeOfFive(t *testing.T) {
	scheme := sskr.Splitter{}
	key, err := envelope.NewSymmetricKey()
	if err != nil {
		t.Fatalf("NewSymmetricKey: %v", err)
	}
	original := envelope.New("my secret").AddAssertion(envelope.Note, "keep safe")
	shares, err := original.SSKRSplit(scheme, 3, 5, key)
	if err != nil {
		t.Fatalf("SSKRSplit: %v", err)
	}
	if len(shares) != 5 {
		t.Fatalf("expected 5 share envelopes, got %d", len(shares))
	}
	for _, s := range shares {
		if !s.Subject().IsEncrypted() {
			t.Fatalf("share subject must be encrypted")
		}
		if strings.Contains(s.Format(), "my secret") {
			t.Fatalf("share leaks content:\n%s", s.Format())
		}
	}

	got, err := envelope.SSKRJoin(scheme, []*envelope.Envelope{shares[4], shares[0], shares[2]})
	if err != nil {
		t.Fatalf("SSKRJoin: %v", err)
	}
	if !got.IsIdenticalTo(original) {
		t.Fatalf("joined envelope differs from original")
	}

	_, err = envelope.SSKRJoin(scheme, shares[:2])
	if !envelope.IsKind(err, envelope.KindInsufficientShares) {
		t.Fatalf("expected InsufficientShares, got %v", err)
	}
	_, err = envelope.SSKRJoin(scheme, nil)
	if !envelope.IsKind(err, envelope.KindInsufficientShares) {
		t.Fatalf("expected InsufficientShares for no shares, got %v", err)
	}
}

func TestSSKR_TextTransportRoundTrip(t *testing.T) {
	scheme := sskr.Splitter{}
	key, _ := envelope.NewSymmetricKey()
	original := envelope.New("seed phrase")
	shares, err := original.SSKRSplit(scheme, 2, 3, key)
	if err != nil {
		t.Fatalf("SSKRSplit: %v", err)
	}
	var decoded []*envelope.Envelope
	for _, s := range shares[1:] {
		d, err := envelope.DecodeString(s.EncodeString())
		if err != nil {
			t.Fatalf("DecodeString: %v", err)
		}
		decoded = append(decoded, d)
	}
	got, err := envelope.SSKRJoin(scheme, decoded)
	if err != nil {
		t.Fatalf("SSKRJoin: %v", err)
	}
	if got.Digest() != original.Digest() {
		t.Fatalf("digest mismatch after join")
	}
}
