package main

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/envelope/envelope"
	"xdao.co/envelope/keys"
	"xdao.co/envelope/signing"
)

func (a *app) signCmd() *cobra.Command {
	var signerTexts, keyNames, keyFiles []string
	cmd := &cobra.Command{
		Use:   "sign [ENVELOPE]",
		Short: "Add one 'signed' assertion per signer over the subject digest",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signers, err := a.loadSigners(signerTexts, keyNames, keyFiles)
			if err != nil {
				return err
			}
			if len(signers) == 0 {
				return usagef("at least one --signer, --key-name, or --key-file is required")
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			out, err := e.AddSignatures(signers...)
			if err != nil {
				return err
			}
			a.log.Debug("signed", zap.Int("signers", len(signers)), zap.String("subject", e.Subject().Digest().Short()))
			return a.printEnvelope(out)
		},
	}
	cmd.Flags().StringArrayVar(&signerTexts, "signer", nil, "Private key text (signer:<scheme>:<base64>); repeatable")
	cmd.Flags().StringArrayVar(&keyNames, "key-name", nil, "Stored key as <name> or <name>/<role>; repeatable")
	cmd.Flags().StringArrayVar(&keyFiles, "key-file", nil, "Key file written by the key store; repeatable")
	return cmd
}

func (a *app) loadSigners(texts, names, files []string) ([]envelope.Signer, error) {
	var out []envelope.Signer
	for _, t := range texts {
		k, err := signing.ParsePrivateKey(t)
		if err != nil {
			return nil, usagef("--signer: %v", err)
		}
		out = append(out, k)
	}
	if len(names) == 0 && len(files) == 0 {
		return out, nil
	}
	ks, err := a.keyStore()
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		name, role, _ := strings.Cut(n, "/")
		k, err := ks.LoadSigner(name, role)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	for _, f := range files {
		k, err := ks.LoadSignerFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// parseVerifier accepts a public key, or a private key whose public half is used.
func parseVerifier(s string) (envelope.Verifier, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "signer:") {
		k, err := signing.ParsePrivateKey(s)
		if err != nil {
			return nil, err
		}
		return k.Public(), nil
	}
	return signing.ParsePublicKey(s)
}

func (a *app) verifyCmd() *cobra.Command {
	var verifierTexts []string
	var threshold int
	var silent bool
	cmd := &cobra.Command{
		Use:   "verify [ENVELOPE]",
		Short: "Check signatures; prints the envelope on success",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(verifierTexts) == 0 {
				return usagef("at least one --verifier is required")
			}
			verifiers := make([]envelope.Verifier, 0, len(verifierTexts))
			for _, t := range verifierTexts {
				v, err := parseVerifier(t)
				if err != nil {
					return usagef("--verifier: %v", err)
				}
				verifiers = append(verifiers, v)
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			if _, err := e.VerifySignaturesFromThreshold(verifiers, threshold); err != nil {
				return err
			}
			if silent {
				return nil
			}
			return a.printEnvelope(e)
		},
	}
	cmd.Flags().StringArrayVar(&verifierTexts, "verifier", nil, "Public key text (<scheme>:<base64>); repeatable")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Valid signatures required (0 means all verifiers)")
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Print nothing on success")
	return cmd
}

func (a *app) generateCmd() *cobra.Command {
	cmd := groupCmd("generate", "Generate keys and seeds")

	cmd.AddCommand(&cobra.Command{
		Use:   "key",
		Short: "Generate a symmetric key for encrypt/decrypt",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := envelope.NewSymmetricKey()
			if err != nil {
				return err
			}
			return a.printLine(k.String())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Generate a random 32-byte seed as hex",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := make([]byte, signing.SeedSize)
			if _, err := rand.Read(seed); err != nil {
				return err
			}
			return a.printLine(hex.EncodeToString(seed))
		},
	})

	var scheme, seedHex string
	signer := &cobra.Command{
		Use:   "signer",
		Short: "Generate a private signing key",
		Args:  argsRange(0, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.cfg.SigningScheme()
			if scheme != "" {
				var err error
				if s, err = signing.ParseScheme(scheme); err != nil {
					return usagef("%v", err)
				}
			}
			var (
				k   *signing.PrivateKey
				err error
			)
			if seedHex != "" {
				seed, perr := keys.ParseSeedHex(seedHex)
				if perr != nil {
					return usagef("--seed: %v", perr)
				}
				k, err = signing.NewPrivateKey(s, seed)
			} else {
				k, err = signing.GeneratePrivateKey(s, rand.Reader)
			}
			if err != nil {
				return err
			}
			return a.printLine(k.String())
		},
	}
	signer.Flags().StringVar(&scheme, "scheme", "", "ed25519, dilithium3, or secp256k1 (default from signing.scheme)")
	signer.Flags().StringVar(&seedHex, "seed", "", "Derive from a 32-byte hex seed instead of randomness")
	cmd.AddCommand(signer)

	cmd.AddCommand(&cobra.Command{
		Use:   "verifier [SIGNER]",
		Short: "Print the public key for a private key",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readArgOrStdin(args, 0)
			if err != nil {
				return err
			}
			k, err := signing.ParsePrivateKey(text)
			if err != nil {
				return err
			}
			return a.printLine(k.Public().String())
		},
	})
	return cmd
}
