package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("ENVELOPE_KEYS_DIR", filepath.Join(t.TempDir(), "keys"))
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// ok runs the command, requires exit 0, and returns trimmed stdout.
func ok(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	r := runCLI(t, stdin, args...)
	require.Equal(t, 0, r.code, "envelope %s\nstderr: %s", strings.Join(args, " "), r.stderr)
	return strings.TrimSpace(r.stdout)
}

func lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func seedHex(fill string) string { return strings.Repeat(fill, 32) }

func aliceKnowsBob(t *testing.T) string {
	t.Helper()
	alice := ok(t, "", "subject", "type", "string", "Alice")
	require.True(t, strings.HasPrefix(alice, "envelope:"), alice)
	return ok(t, "", "assertion", "add", "string", "knows", "string", "Bob", alice)
}

func TestScenario_SignedByTwoSigners(t *testing.T) {
	e := aliceKnowsBob(t)
	signer1 := ok(t, "", "generate", "signer", "--scheme", "ed25519", "--seed", seedHex("01"))
	signer2 := ok(t, "", "generate", "signer", "--scheme", "secp256k1", "--seed", seedHex("02"))
	verifier1 := ok(t, "", "generate", "verifier", signer1)
	verifier2 := ok(t, signer2, "generate", "verifier")
	stranger := ok(t, "", "generate", "verifier", ok(t, "", "generate", "signer", "--seed", seedHex("03")))

	signed := ok(t, e, "sign", "--signer", signer1, "--signer", signer2)

	want := strings.Join([]string{
		`"Alice" [`,
		`    "knows": "Bob"`,
		`    'signed': Signature`,
		`    'signed': Signature`,
		`]`,
	}, "\n")
	assert.Equal(t, want, ok(t, "", "format", signed))
	assert.Equal(t, "3", ok(t, "", "assertion", "count", signed))

	assert.Equal(t, signed, ok(t, "", "verify", "--verifier", verifier1, "--verifier", verifier2, signed))
	assert.Empty(t, ok(t, signed, "verify", "--silent", "--verifier", verifier1))
	// A signer key is accepted as a verifier.
	ok(t, "", "verify", "-s", "--verifier", signer2, signed)

	r := runCLI(t, "", "verify", "--verifier", verifier1, "--verifier", stranger, signed)
	assert.Equal(t, 1, r.code)
	ok(t, "", "verify", "--threshold", "1", "--verifier", verifier1, "--verifier", stranger, signed)
}

func TestElideKeepsDigest(t *testing.T) {
	e := aliceKnowsBob(t)
	bob := ok(t, "", "digest", ok(t, "", "subject", "type", "string", "Bob"))

	elided := ok(t, e, "elide", "removing", "--target", bob)
	assert.Contains(t, ok(t, "", "format", elided), `"knows": ELIDED`)
	assert.Equal(t, ok(t, "", "digest", e), ok(t, "", "digest", elided))

	alice := ok(t, "", "digest", ok(t, "", "subject", "type", "string", "Alice"))
	revealed := ok(t, "", "format", ok(t, e, "elide", "revealing", "--target", alice))
	assert.Contains(t, revealed, `"Alice" [`)
	assert.Contains(t, revealed, "ELIDED")
	assert.NotContains(t, revealed, "Bob")
}

func TestProofCreateAndConfirm(t *testing.T) {
	e := ok(t, "", "assertion", "add", "string", "ssn", "string", "123-45-6789", aliceKnowsBob(t))
	var knows string
	for _, a := range lines(ok(t, "", "assertion", "all", e)) {
		if strings.Contains(ok(t, "", "format", a), `"knows"`) {
			knows = ok(t, "", "digest", a)
		}
	}
	require.NotEmpty(t, knows)

	proof := ok(t, e, "proof", "create", "--target", knows)
	assert.NotContains(t, ok(t, "", "format", proof), "123-45-6789")
	assert.Equal(t, ok(t, "", "digest", e), ok(t, "", "digest", proof))

	assert.Empty(t, ok(t, proof, "proof", "confirm", "--silent", "--root", e, "--target", knows))
	ok(t, proof, "proof", "confirm", "-s", "--root", ok(t, "", "digest", "--cid", e), "--target", knows)

	carol := ok(t, "", "digest", ok(t, "", "subject", "type", "string", "Carol"))
	r := runCLI(t, proof, "proof", "confirm", "--root", e, "--target", carol)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "ENV-PROOF-002")
}

func TestSSKRSplitJoin(t *testing.T) {
	e := aliceKnowsBob(t)
	shares := lines(ok(t, e, "sskr", "split", "--threshold", "3", "--count", "5"))
	require.Len(t, shares, 5)

	joined := ok(t, strings.Join([]string{shares[4], shares[0], shares[2]}, "\n"), "sskr", "join")
	assert.Equal(t, ok(t, "", "digest", e), ok(t, "", "digest", joined))

	r := runCLI(t, "", append([]string{"sskr", "join"}, shares[:2]...)...)
	assert.Equal(t, 1, r.code)
}

func TestEncryptDecrypt(t *testing.T) {
	e := aliceKnowsBob(t)
	key := ok(t, "", "generate", "key")

	enc := ok(t, e, "encrypt", "--key", key)
	assert.True(t, strings.HasPrefix(ok(t, "", "format", enc), "ENCRYPTED ["))
	assert.Equal(t, ok(t, "", "digest", e), ok(t, "", "digest", enc))

	assert.Equal(t, e, ok(t, enc, "decrypt", "--key", key))

	other := ok(t, "", "generate", "key")
	r := runCLI(t, enc, "decrypt", "--key", other)
	assert.Equal(t, 1, r.code)
}

func TestCompressAndSalt(t *testing.T) {
	e := aliceKnowsBob(t)
	c := ok(t, e, "compress")
	assert.Equal(t, ok(t, "", "digest", e), ok(t, "", "digest", c))
	assert.Equal(t, e, ok(t, c, "uncompress"))

	salted := ok(t, e, "salt")
	assert.NotEqual(t, ok(t, "", "digest", e), ok(t, "", "digest", salted))
	assert.Contains(t, ok(t, "", "format", salted), "'salt': Salt")
}

func TestExtract(t *testing.T) {
	assert.Equal(t, "42", ok(t, "", "extract", "int", ok(t, "", "subject", "type", "int", "42")))
	assert.Equal(t, "2024-03-01", ok(t, "", "extract", "date", ok(t, "", "subject", "type", "date", "2024-03-01")))
	assert.Equal(t, "Alice", ok(t, "", "extract", "string", aliceKnowsBob(t)))
}

func TestAttachments(t *testing.T) {
	e := aliceKnowsBob(t)
	payload := ok(t, "", "subject", "type", "string", "Attachment Data V1")
	v1 := ok(t, payload, "attachment", "create", "--vendor", "com.example", "--conforms-to", "https://example.com/v1")
	assert.Equal(t, "com.example", ok(t, "", "attachment", "vendor", v1))
	assert.Equal(t, "https://example.com/v1", ok(t, "", "attachment", "conforms-to", v1))
	assert.Equal(t, payload, ok(t, "", "attachment", "payload", v1))

	with := ok(t, e, "attachment", "add", "--attachment", v1)
	with = ok(t, with, "attachment", "add", "--vendor", "org.other", "--payload", payload)
	assert.Equal(t, "2", ok(t, "", "attachment", "count", with))
	assert.Equal(t, "3", ok(t, "", "assertion", "count", with))
	assert.Contains(t, ok(t, "", "format", with), `'attachment': {`)
	assert.ElementsMatch(t, lines(ok(t, "", "attachment", "all", with)), []string{
		v1, ok(t, payload, "attachment", "create", "--vendor", "org.other"),
	})

	assert.Equal(t, []string{v1}, lines(ok(t, "", "attachment", "find", "--vendor", "com.example", with)))
	assert.Equal(t, []string{v1}, lines(ok(t, "", "attachment", "find", "--conforms-to", "https://example.com/v1", with)))
	assert.Empty(t, ok(t, "", "attachment", "find", "--vendor", "com.example", "--conforms-to", "nope", with))
	assert.Empty(t, ok(t, "", "attachment", "conforms-to", ok(t, "", "attachment", "find", "--vendor", "org.other", with)))
	assert.Equal(t, "0", ok(t, "", "attachment", "count", e))

	r := runCLI(t, e, "attachment", "add", "--vendor", "com.example")
	assert.Equal(t, 2, r.code, "payload is required with --vendor")
	r = runCLI(t, e, "attachment", "add", "--attachment", v1, "--vendor", "x")
	assert.Equal(t, 2, r.code)
	r = runCLI(t, payload, "attachment", "create")
	assert.Equal(t, 2, r.code, "vendor is required")
	r = runCLI(t, "", "attachment", "vendor", e)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "ENV-ATTACH-001")
}

func TestKeyStoreSigning(t *testing.T) {
	dir := t.TempDir()
	out := ok(t, "", "--keys-dir", dir, "key", "init", "--name", "alice", "--scheme", "dilithium3", "--seed-hex", seedHex("07"))
	assert.Contains(t, out, "Created root key: dilithium3:")
	ok(t, "", "--keys-dir", dir, "key", "derive", "--from", "alice", "--role", "approver")
	assert.Equal(t, "alice (dilithium3) roles: approver", ok(t, "", "--keys-dir", dir, "key", "list"))

	pub := ok(t, "", "--keys-dir", dir, "key", "export", "--name", "alice", "--role", "approver")
	signed := ok(t, aliceKnowsBob(t), "--keys-dir", dir, "sign", "--key-name", "alice/approver")
	ok(t, "", "verify", "-s", "--verifier", pub, signed)

	r := runCLI(t, "", "--keys-dir", dir, "key", "init", "--name", "alice")
	assert.Equal(t, 1, r.code, "existing key must not be overwritten without --force")
}

func TestStorePutGetFind(t *testing.T) {
	dir := t.TempDir()
	e := aliceKnowsBob(t)
	id := ok(t, e, "store", "put", "--dir", dir)
	assert.Equal(t, e, ok(t, "", "store", "get", "--dir", dir, id))

	bob := ok(t, "", "digest", ok(t, "", "subject", "type", "string", "Bob"))
	elidedID := ok(t, ok(t, e, "elide", "removing", "--target", bob), "store", "put", "--dir", dir)
	assert.NotEqual(t, id, elidedID)

	found := lines(ok(t, "", "store", "find", "--dir", dir, ok(t, "", "digest", e)))
	assert.ElementsMatch(t, []string{id, elidedID}, found)
	assert.ElementsMatch(t, []string{id, elidedID}, lines(ok(t, "", "store", "list", "--dir", dir)))

	bundlePath := filepath.Join(t.TempDir(), "b.tar")
	ok(t, "", "store", "export", "--dir", dir, "--out", bundlePath, id, elidedID)
	other := t.TempDir()
	assert.ElementsMatch(t, []string{id, elidedID}, lines(ok(t, "", "store", "import", "--dir", other, "--require-envelopes", bundlePath)))
	assert.Equal(t, e, ok(t, "", "store", "get", "--dir", other, id))

	r := runCLI(t, "", "store", "get", "--dir", dir, "not-a-cid")
	assert.Equal(t, 2, r.code)
	r = runCLI(t, e, "store", "put")
	assert.Equal(t, 2, r.code, "no store configured")
}

func TestConfigFileDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "envelope.yaml")
	writeFile(t, cfgPath, "signing:\n  scheme: secp256k1\nstore:\n  backends:\n    - name: localfs\n      options: {dir: blocks}\n")

	signer := ok(t, "", "--config", cfgPath, "generate", "signer")
	assert.True(t, strings.HasPrefix(signer, "signer:secp256k1:"), signer)

	id := ok(t, aliceKnowsBob(t), "--config", cfgPath, "store", "put")
	assert.Equal(t, []string{id}, lines(ok(t, "", "store", "list", "--dir", filepath.Join(dir, "blocks"))))
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"unknown command", []string{"nope"}, 2},
		{"group without subcommand", []string{"subject"}, 2},
		{"unknown subcommand", []string{"proof", "bogus"}, 2},
		{"unknown flag", []string{"format", "--bogus"}, 2},
		{"missing verifier", []string{"verify"}, 2},
		{"bad int", []string{"subject", "type", "int", "x"}, 2},
		{"bad envelope", []string{"format", "envelope:AAAA"}, 1},
		{"help", []string{"--help"}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := runCLI(t, "", c.args...)
			assert.Equal(t, c.want, r.code, "stderr: %s", r.stderr)
		})
	}
}
