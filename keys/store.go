package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/envelope/signing"
)

// KeyStore keeps signer seeds on the local filesystem.
type KeyStore struct {
	Directory string
}

// KeyEntry describes one stored identity.
type KeyEntry struct {
	Identifier string
	Scheme     signing.Scheme
	Roles      []string
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "envelope", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) getRootKeyFilePath(identifier string) string {
	return filepath.Join(ks.Directory, identifier, "root.key")
}

func (ks *KeyStore) getRoleKeyFilePath(identifier, role string) string {
	return filepath.Join(ks.Directory, identifier, "roles", role+".key")
}

func checkName(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, kind)
	}
	return nil
}

func CheckKeyName(identifier string) error { return checkName("identifier", identifier) }

func CheckRole(role string) error { return checkName("role", role) }

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != signing.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", signing.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeedToFile(filePath string, scheme signing.Scheme, seed []byte, overwrite bool) error {
	if len(seed) != signing.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", signing.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(string(scheme) + ":" + hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

// loadSeedFromFile reads "<scheme>:<hex>". A bare hex seed is read as ed25519.
func (ks *KeyStore) loadSeedFromFile(filePath string) (signing.Scheme, []byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", nil, err
	}
	line := strings.TrimSpace(string(data))
	scheme := signing.Ed25519
	if alg, rest, ok := strings.Cut(line, ":"); ok {
		if scheme, err = signing.ParseScheme(alg); err != nil {
			return "", nil, err
		}
		line = rest
	}
	seed, err := ParseSeedHex(line)
	if err != nil {
		return "", nil, err
	}
	return scheme, seed, nil
}

// InitializeRootKey stores a root seed for identifier and returns its public key string.
func (ks *KeyStore) InitializeRootKey(identifier string, scheme signing.Scheme, seed []byte, overwrite bool) (publicKey string, filePath string, err error) {
	if err := CheckKeyName(identifier); err != nil {
		return "", "", err
	}
	publicKey, err = PublicKeyFromSeed(scheme, seed)
	if err != nil {
		return "", "", err
	}
	filePath = ks.getRootKeyFilePath(identifier)
	if err := ks.saveSeedToFile(filePath, scheme, seed, overwrite); err != nil {
		return "", "", err
	}
	return publicKey, filePath, nil
}

// DeriveKeyFromRole derives and stores a role seed under the root identity from. The role
// key uses the root's scheme.
func (ks *KeyStore) DeriveKeyFromRole(from, role string, overwrite bool) (publicKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	scheme, rootSeed, err := ks.loadSeedFromFile(ks.getRootKeyFilePath(from))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	publicKey, err = PublicKeyFromSeed(scheme, roleSeed)
	if err != nil {
		return "", "", err
	}
	filePath = ks.getRoleKeyFilePath(from, role)
	if err := ks.saveSeedToFile(filePath, scheme, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return publicKey, filePath, nil
}

// LoadSigner returns the private key for identifier, or for one of its roles when role is
// non-empty.
func (ks *KeyStore) LoadSigner(identifier, role string) (*signing.PrivateKey, error) {
	if err := CheckKeyName(identifier); err != nil {
		return nil, err
	}
	path := ks.getRootKeyFilePath(identifier)
	if role != "" {
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		path = ks.getRoleKeyFilePath(identifier, role)
	}
	scheme, seed, err := ks.loadSeedFromFile(path)
	if err != nil {
		return nil, err
	}
	return signing.NewPrivateKey(scheme, seed)
}

// ExportKey returns the public key string for identifier or one of its roles.
func (ks *KeyStore) ExportKey(identifier string, role string) (string, error) {
	k, err := ks.LoadSigner(identifier, role)
	if err != nil {
		return "", err
	}
	return k.Public().String(), nil
}

// LoadSignerFile reads a key file written by the store from an arbitrary path.
func (ks *KeyStore) LoadSignerFile(path string) (*signing.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("no key file provided")
	}
	scheme, seed, err := ks.loadSeedFromFile(path)
	if err != nil {
		return nil, err
	}
	return signing.NewPrivateKey(scheme, seed)
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identifiers []string
	for _, entry := range entries {
		if entry.IsDir() {
			identifiers = append(identifiers, entry.Name())
		}
	}
	sort.Strings(identifiers)

	var result []KeyEntry
	for _, identifier := range identifiers {
		entry := KeyEntry{Identifier: identifier}
		if scheme, _, err := ks.loadSeedFromFile(ks.getRootKeyFilePath(identifier)); err == nil {
			entry.Scheme = scheme
		}
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, identifier, "roles"))
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					entry.Roles = append(entry.Roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(entry.Roles)
		}
		result = append(result, entry)
	}
	return result, nil
}
