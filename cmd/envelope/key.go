package main

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/envelope/keys"
	"xdao.co/envelope/signing"
)

func (a *app) keyCmd() *cobra.Command {
	cmd := groupCmd("key", "Local key store for signer seeds")
	cmd.AddCommand(a.keyInitCmd(), a.keyDeriveCmd(), a.keyListCmd(), a.keyExportCmd())
	return cmd
}

func (a *app) keyInitCmd() *cobra.Command {
	var name, scheme, seedHex string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a root key",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return usagef("missing --name")
			}
			if err := keys.CheckKeyName(name); err != nil {
				return usagef("invalid --name: %v", err)
			}
			s := a.cfg.SigningScheme()
			if scheme != "" {
				var err error
				if s, err = signing.ParseScheme(scheme); err != nil {
					return usagef("invalid --scheme: %v", err)
				}
			}
			var seed []byte
			if seedHex != "" {
				var err error
				if seed, err = keys.ParseSeedHex(seedHex); err != nil {
					return usagef("invalid --seed-hex: %v", err)
				}
			} else {
				seed = make([]byte, signing.SeedSize)
				if _, err := rand.Read(seed); err != nil {
					return fmt.Errorf("rand: %w", err)
				}
			}
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			pub, path, err := ks.InitializeRootKey(name, s, seed, force)
			if err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			a.log.Info("root key created", zap.String("name", name), zap.String("scheme", string(s)))
			fmt.Fprintf(a.out, "Created root key: %s\n", pub)
			fmt.Fprintf(a.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name (directory under the key store)")
	cmd.Flags().StringVar(&scheme, "scheme", "", "ed25519, dilithium3, or secp256k1 (default from signing.scheme)")
	cmd.Flags().StringVar(&seedHex, "seed-hex", "", "Optional seed as 64 hex chars (for reproducible demos)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (a *app) keyDeriveCmd() *cobra.Command {
	var from, role string
	var force bool
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a role key from a root key",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return usagef("missing --from")
			}
			if role == "" {
				return usagef("missing --role")
			}
			if err := keys.CheckKeyName(from); err != nil {
				return usagef("invalid --from: %v", err)
			}
			if err := keys.CheckRole(role); err != nil {
				return usagef("invalid --role: %v", err)
			}
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			pub, path, err := ks.DeriveKeyFromRole(from, role, force)
			if err != nil {
				return fmt.Errorf("derive role key: %w", err)
			}
			fmt.Fprintf(a.out, "Created role key: %s\n", pub)
			fmt.Fprintf(a.out, "Stored at: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Root key name")
	cmd.Flags().StringVar(&role, "role", "", "Role identifier (e.g. author, approver)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing key files")
	return cmd
}

func (a *app) keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys and their roles",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			entries, err := ks.ListKeys()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(a.out, "No keys found in %s\n", ks.Directory)
				return nil
			}
			for _, e := range entries {
				line := e.Identifier
				if e.Scheme != "" {
					line += " (" + string(e.Scheme) + ")"
				}
				if len(e.Roles) > 0 {
					line += " roles: " + strings.Join(e.Roles, ", ")
				}
				fmt.Fprintln(a.out, line)
			}
			return nil
		},
	}
}

func (a *app) keyExportCmd() *cobra.Command {
	var name, role string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the public key (verifier) of a stored key",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return usagef("missing --name")
			}
			ks, err := a.keyStore()
			if err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			pub, err := ks.ExportKey(name, role)
			if err != nil {
				return err
			}
			return a.printLine(pub)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Key name")
	cmd.Flags().StringVar(&role, "role", "", "Optional role (exports the derived role key)")
	return cmd
}
