// Package keys is a local-first key store for envelope signers.
//
// Each named identity has a root seed and any number of role seeds derived from it. Seeds are
// stored as "<scheme>:<hex>" in 0600 files:
//
//	<dir>/<name>/root.key
//	<dir>/<name>/roles/<role>.key
//
// DeriveRoleSeed is a pure, deterministic primitive; the filesystem-backed KeyStore is a
// convenience for the CLI.
package keys
