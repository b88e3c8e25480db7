package keys

import (
	"crypto/sha256"
	"fmt"

	"xdao.co/envelope/signing"
)

const roleDomain = "xdao-envelope-keys-v1"

// DeriveRoleSeed deterministically derives a role-specific seed from a root seed.
// The derivation is independent of the signature scheme.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != signing.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", signing.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(roleDomain))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	return h.Sum(nil)[:signing.SeedSize], nil
}

// PublicKeyFromSeed returns the public key string for a scheme and seed.
func PublicKeyFromSeed(scheme signing.Scheme, seed []byte) (string, error) {
	k, err := signing.NewPrivateKey(scheme, seed)
	if err != nil {
		return "", err
	}
	return k.Public().String(), nil
}
