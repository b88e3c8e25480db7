package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the length of a SymmetricKey.
	KeySize   = chacha20poly1305.KeySize
	nonceSize = chacha20poly1305.NonceSize

	keyPrefix = "chacha20poly1305:"
)

// SymmetricKey is a ChaCha20-Poly1305 content key.
type SymmetricKey [KeySize]byte

// NewSymmetricKey returns a random key from crypto/rand.
func NewSymmetricKey() (SymmetricKey, error) {
	return newSymmetricKeyFrom(rand.Reader)
}

func newSymmetricKeyFrom(r io.Reader) (SymmetricKey, error) {
	var k SymmetricKey
	if _, err := io.ReadFull(r, k[:]); err != nil {
		return k, wrapError(KindCrypto, "ENV-CRYPTO-001", "cannot generate key", err)
	}
	return k, nil
}

func SymmetricKeyFromBytes(b []byte) (SymmetricKey, error) {
	var k SymmetricKey
	if len(b) != KeySize {
		return k, newError(KindCrypto, "ENV-CRYPTO-002", fmt.Sprintf("symmetric key must be %d bytes", KeySize))
	}
	copy(k[:], b)
	return k, nil
}

func (k SymmetricKey) Bytes() []byte { return append([]byte(nil), k[:]...) }

func (k SymmetricKey) String() string {
	return keyPrefix + base64.StdEncoding.EncodeToString(k[:])
}

// ParseSymmetricKey parses the String form.
func ParseSymmetricKey(s string) (SymmetricKey, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, keyPrefix) {
		return SymmetricKey{}, newError(KindCrypto, "ENV-CRYPTO-003", "symmetric key must start with "+keyPrefix)
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, keyPrefix))
	if err != nil {
		return SymmetricKey{}, wrapError(KindCrypto, "ENV-CRYPTO-003", "invalid symmetric key encoding", err)
	}
	return SymmetricKeyFromBytes(b)
}

// seal encrypts e as a whole. The placeholder keeps e's digest, which is also bound as AAD.
func seal(e *Envelope, key SymmetricKey, r io.Reader) (*Envelope, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, wrapError(KindCrypto, "ENV-CRYPTO-004", "cannot initialize cipher", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, wrapError(KindCrypto, "ENV-CRYPTO-005", "cannot generate nonce", err)
	}
	ct := aead.Seal(nil, nonce, e.Encode(), e.digest[:])
	return newEncrypted(e.digest, ct, nonce), nil
}

// open reverses seal and fails closed: authentication failures and digest mismatches
// both report KindDigestMismatch.
func open(e *Envelope, key SymmetricKey) (*Envelope, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, wrapError(KindCrypto, "ENV-CRYPTO-004", "cannot initialize cipher", err)
	}
	pt, err := aead.Open(nil, e.sealed.nonce, e.sealed.ciphertext, e.digest[:])
	if err != nil {
		return nil, wrapError(KindDigestMismatch, "ENV-CRYPTO-201", "decryption failed (wrong key or tampered ciphertext)", err)
	}
	out, err := Decode(pt)
	if err != nil {
		return nil, wrapError(KindDigestMismatch, "ENV-CRYPTO-202", "decrypted content is not an envelope", err)
	}
	if out.digest != e.digest {
		return nil, newError(KindDigestMismatch, "ENV-CRYPTO-203", "decrypted content does not match stored digest")
	}
	return out, nil
}

// Encrypt replaces e as a whole with an encrypted placeholder of the same digest.
// Elided and encrypted envelopes cannot be encrypted.
func (e *Envelope) Encrypt(key SymmetricKey) (*Envelope, error) {
	switch e.kind {
	case CaseElided:
		return nil, newError(KindInvalidStructure, "ENV-CRYPTO-006", "cannot encrypt an elided envelope")
	case CaseEncrypted:
		return nil, newError(KindInvalidStructure, "ENV-CRYPTO-007", "envelope is already encrypted")
	}
	return seal(e, key, rand.Reader)
}

// Decrypt reverses Encrypt.
func (e *Envelope) Decrypt(key SymmetricKey) (*Envelope, error) {
	if e.kind != CaseEncrypted {
		return nil, newError(KindInvalidStructure, "ENV-CRYPTO-008", "envelope is not encrypted")
	}
	return open(e, key)
}

// EncryptSubject encrypts only the subject, leaving assertions readable.
func (e *Envelope) EncryptSubject(key SymmetricKey) (*Envelope, error) {
	subj, err := e.Subject().Encrypt(key)
	if err != nil {
		return nil, err
	}
	return e.ReplaceSubject(subj), nil
}

// DecryptSubject reverses EncryptSubject.
func (e *Envelope) DecryptSubject(key SymmetricKey) (*Envelope, error) {
	subj, err := e.Subject().Decrypt(key)
	if err != nil {
		return nil, err
	}
	return e.ReplaceSubject(subj), nil
}

// DecryptAll decrypts every encrypted placeholder reachable in the tree, including those
// revealed by decryption. It stops at the first failure.
func (e *Envelope) DecryptAll(key SymmetricKey) (*Envelope, error) {
	return e.transform(func(n *Envelope) (*Envelope, bool, error) {
		if n.kind != CaseEncrypted {
			return n, false, nil
		}
		out, err := open(n, key)
		return out, true, err
	})
}
