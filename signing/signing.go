// Package signing provides envelope signers and verifiers for Ed25519, Dilithium3
// (post-quantum), and secp256k1 ECDSA.
//
// Every private key is derived from a 32-byte seed, so a key is fully described by its
// scheme and seed. Public keys render as "<scheme>:<base64>"; private keys render as
// "signer:<scheme>:<base64 seed>".
package signing

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"xdao.co/envelope/envelope"
)

// Scheme names a signature algorithm.
type Scheme string

const (
	Ed25519    Scheme = "ed25519"
	Dilithium3 Scheme = "dilithium3"
	Secp256k1  Scheme = "secp256k1"
)

// SeedSize is the seed length for every scheme.
const SeedSize = 32

const privatePrefix = "signer:"

var (
	ErrUnsupportedScheme = errors.New("signing: unsupported scheme")
	ErrInvalidSeed       = errors.New("signing: invalid seed")
	ErrInvalidKey        = errors.New("signing: invalid key encoding")
)

// Schemes lists the supported schemes.
func Schemes() []Scheme { return []Scheme{Ed25519, Dilithium3, Secp256k1} }

// ParseScheme validates a scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch sc := Scheme(strings.ToLower(strings.TrimSpace(s))); sc {
	case Ed25519, Dilithium3, Secp256k1:
		return sc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, s)
}

// hashAlgFor returns the message hash each scheme signs over.
func hashAlgFor(s Scheme) string {
	if s == Dilithium3 {
		return "sha3-256"
	}
	return "sha256"
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// PrivateKey signs envelopes. It implements envelope.Signer.
type PrivateKey struct {
	scheme Scheme
	seed   [SeedSize]byte

	ed  ed25519.PrivateKey
	dil *mode3.PrivateKey
	ec  *ecdsa.PrivateKey
	pub *PublicKey
}

var _ envelope.Signer = (*PrivateKey)(nil)

// NewPrivateKey derives a private key for scheme from a 32-byte seed.
func NewPrivateKey(scheme Scheme, seed []byte) (*PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidSeed, SeedSize, len(seed))
	}
	k := &PrivateKey{scheme: scheme}
	copy(k.seed[:], seed)

	switch scheme {
	case Ed25519:
		k.ed = ed25519.NewKeyFromSeed(seed)
		k.pub = &PublicKey{scheme: scheme, data: []byte(k.ed.Public().(ed25519.PublicKey))}
	case Dilithium3:
		pk, sk := mode3.NewKeyFromSeed(&k.seed)
		k.dil = sk
		k.pub = &PublicKey{scheme: scheme, data: pk.Bytes()}
	case Secp256k1:
		ec, err := crypto.ToECDSA(seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		k.ec = ec
		k.pub = &PublicKey{scheme: scheme, data: crypto.CompressPubkey(&ec.PublicKey)}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return k, nil
}

// GeneratePrivateKey draws a fresh seed from r.
func GeneratePrivateKey(scheme Scheme, r io.Reader) (*PrivateKey, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("signing: read seed: %w", err)
	}
	return NewPrivateKey(scheme, seed)
}

func (k *PrivateKey) Scheme() Scheme { return k.scheme }

func (k *PrivateKey) Seed() []byte { return append([]byte(nil), k.seed[:]...) }

func (k *PrivateKey) Public() *PublicKey { return k.pub }

// Sign signs hash(message) with the scheme's hash.
func (k *PrivateKey) Sign(message []byte) (envelope.Signature, error) {
	h, err := digestFor(hashAlgFor(k.scheme), message)
	if err != nil {
		return envelope.Signature{}, err
	}
	var sig []byte
	switch k.scheme {
	case Ed25519:
		sig = ed25519.Sign(k.ed, h)
	case Dilithium3:
		sig = make([]byte, mode3.SignatureSize)
		mode3.SignTo(k.dil, h, sig)
	case Secp256k1:
		rsv, err := crypto.Sign(h, k.ec)
		if err != nil {
			return envelope.Signature{}, fmt.Errorf("signing: secp256k1: %w", err)
		}
		sig = rsv[:64]
	default:
		return envelope.Signature{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, k.scheme)
	}
	return envelope.Signature{Scheme: string(k.scheme), Data: sig}, nil
}

func (k *PrivateKey) String() string {
	return privatePrefix + string(k.scheme) + ":" + base64.StdEncoding.EncodeToString(k.seed[:])
}

// ParsePrivateKey parses the String form of a private key.
func ParsePrivateKey(s string) (*PrivateKey, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), privatePrefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidKey, privatePrefix)
	}
	alg, enc, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, ErrInvalidKey
	}
	scheme, err := ParseScheme(alg)
	if err != nil {
		return nil, err
	}
	seed, err := decodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return NewPrivateKey(scheme, seed)
}

// PublicKey verifies envelope signatures. It implements envelope.Verifier.
type PublicKey struct {
	scheme Scheme
	data   []byte
}

var _ envelope.Verifier = (*PublicKey)(nil)

func (p *PublicKey) Scheme() Scheme { return p.scheme }

func (p *PublicKey) Bytes() []byte { return append([]byte(nil), p.data...) }

// Verify reports whether sig is a valid signature by p over message. Signatures from a
// different scheme never verify.
func (p *PublicKey) Verify(message []byte, sig envelope.Signature) bool {
	if sig.Scheme != string(p.scheme) {
		return false
	}
	h, err := digestFor(hashAlgFor(p.scheme), message)
	if err != nil {
		return false
	}
	switch p.scheme {
	case Ed25519:
		return len(sig.Data) == ed25519.SignatureSize && ed25519.Verify(ed25519.PublicKey(p.data), h, sig.Data)
	case Dilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(p.data); err != nil {
			return false
		}
		return len(sig.Data) == mode3.SignatureSize && mode3.Verify(&pk, h, sig.Data)
	case Secp256k1:
		return len(sig.Data) == 64 && crypto.VerifySignature(p.data, h, sig.Data)
	}
	return false
}

// String returns "<scheme>:<base64 public key>".
func (p *PublicKey) String() string {
	return string(p.scheme) + ":" + base64.StdEncoding.EncodeToString(p.data)
}

// ParsePublicKey parses the String form of a public key.
func ParsePublicKey(s string) (*PublicKey, error) {
	alg, enc, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, ErrInvalidKey
	}
	scheme, err := ParseScheme(alg)
	if err != nil {
		return nil, err
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	switch scheme {
	case Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("%w: ed25519 public key must be %d bytes", ErrInvalidKey, ed25519.PublicKeySize)
		}
	case Dilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return nil, fmt.Errorf("%w: dilithium3: %v", ErrInvalidKey, err)
		}
	case Secp256k1:
		if _, err := crypto.DecompressPubkey(pub); err != nil {
			return nil, fmt.Errorf("%w: secp256k1: %v", ErrInvalidKey, err)
		}
	}
	return &PublicKey{scheme: scheme, data: pub}, nil
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
