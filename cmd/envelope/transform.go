package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/envelope/digest"
	"xdao.co/envelope/envelope"
)

func (a *app) formatCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "format [ENVELOPE]",
		Short: "Print the envelope in human-readable form",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			switch mode {
			case "envelope":
				_, err = fmt.Fprint(a.out, e.Format())
			case "tree":
				_, err = fmt.Fprint(a.out, e.TreeFormat())
			case "cbor":
				err = a.printLine(hex.EncodeToString(e.Encode()))
			case "summary":
				err = a.printLine(e.Summary())
			default:
				return usagef("unknown format type %q (want envelope, tree, cbor, summary)", mode)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&mode, "type", "envelope", "Output: envelope, tree, cbor, summary")
	return cmd
}

func (a *app) digestCmd() *cobra.Command {
	var depth string
	var asCID bool
	cmd := &cobra.Command{
		Use:   "digest [ENVELOPE]",
		Short: "Print the envelope's digest, or the digests of its parts",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			var ds []digest.Digest
			switch depth {
			case "top":
				ds = []digest.Digest{e.Digest()}
			case "shallow":
				ds = e.ShallowDigests().Sorted()
			case "deep":
				ds = e.DeepDigests().Sorted()
			default:
				return usagef("unknown depth %q (want top, shallow, deep)", depth)
			}
			for _, d := range ds {
				s := d.Hex()
				if asCID {
					s = d.CID().String()
				}
				if err := a.printLine(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&depth, "depth", "top", "top, shallow, or deep")
	cmd.Flags().BoolVar(&asCID, "cid", false, "Print digests as CIDv1 strings")
	return cmd
}

// parseTargets accepts repeated values, each holding one or more space-separated digests
// (hex or CID).
func parseTargets(values []string) (digest.Set, error) {
	set := digest.NewSet()
	for _, v := range values {
		for _, f := range strings.Fields(v) {
			d, err := digest.Parse(f)
			if err != nil {
				return nil, usagef("invalid target %q: %v", f, err)
			}
			set.Add(d)
		}
	}
	return set, nil
}

func (a *app) elideCmd() *cobra.Command {
	cmd := groupCmd("elide", "Obscure parts of an envelope while keeping its digest")
	for _, dir := range []envelope.Direction{envelope.Removing, envelope.Revealing} {
		cmd.AddCommand(a.elideDirectionCmd(dir))
	}
	return cmd
}

func (a *app) elideDirectionCmd(dir envelope.Direction) *cobra.Command {
	var (
		action  string
		keyText string
		targets []string
	)
	short := "Obscure the target digests"
	if dir == envelope.Revealing {
		short = "Obscure everything except the target digests and the paths to them"
	}
	cmd := &cobra.Command{
		Use:   dir.String() + " [ENVELOPE]",
		Short: short,
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := parseAction(action, keyText)
			if err != nil {
				return err
			}
			set, err := parseTargets(targets)
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			out, err := e.Obscure(set, act, dir)
			if err != nil {
				return err
			}
			a.log.Debug("obscured", zap.Stringer("direction", dir), zap.Stringer("action", act), zap.Int("targets", set.Len()))
			return a.printEnvelope(out)
		},
	}
	cmd.Flags().StringVar(&action, "action", "elide", "elide, encrypt, or compress")
	cmd.Flags().StringVar(&keyText, "key", "", "Symmetric key for --action encrypt")
	cmd.Flags().StringArrayVar(&targets, "target", nil, "Target digest(s), hex or CID; repeatable")
	return cmd
}

func parseAction(action, keyText string) (envelope.Action, error) {
	switch action {
	case "elide":
		return envelope.Elide(), nil
	case "compress":
		return envelope.Compress(), nil
	case "encrypt":
		if keyText == "" {
			return envelope.Action{}, usagef("--action encrypt requires --key")
		}
		key, err := envelope.ParseSymmetricKey(keyText)
		if err != nil {
			return envelope.Action{}, usagef("%v", err)
		}
		return envelope.Encrypt(key), nil
	default:
		return envelope.Action{}, usagef("unknown action %q (want elide, encrypt, compress)", action)
	}
}

func requireKey(keyText string) (envelope.SymmetricKey, error) {
	if keyText == "" {
		return envelope.SymmetricKey{}, usagef("--key is required")
	}
	key, err := envelope.ParseSymmetricKey(keyText)
	if err != nil {
		return envelope.SymmetricKey{}, usagef("%v", err)
	}
	return key, nil
}

func (a *app) encryptCmd() *cobra.Command {
	var keyText string
	var whole bool
	cmd := &cobra.Command{
		Use:   "encrypt [ENVELOPE]",
		Short: "Encrypt the envelope's subject (or the whole envelope with --whole)",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := requireKey(keyText)
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			var out *envelope.Envelope
			if whole {
				out, err = e.Encrypt(key)
			} else {
				out, err = e.EncryptSubject(key)
			}
			if err != nil {
				return err
			}
			return a.printEnvelope(out)
		},
	}
	cmd.Flags().StringVar(&keyText, "key", "", "Symmetric key (see generate key)")
	cmd.Flags().BoolVar(&whole, "whole", false, "Encrypt the whole envelope instead of its subject")
	return cmd
}

func (a *app) decryptCmd() *cobra.Command {
	var keyText string
	var all bool
	cmd := &cobra.Command{
		Use:   "decrypt [ENVELOPE]",
		Short: "Decrypt the envelope's subject (or every part sealed with the key, with --all)",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := requireKey(keyText)
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			var out *envelope.Envelope
			switch {
			case all:
				out, err = e.DecryptAll(key)
			case e.IsEncrypted():
				out, err = e.Decrypt(key)
			default:
				out, err = e.DecryptSubject(key)
			}
			if err != nil {
				return err
			}
			return a.printEnvelope(out)
		},
	}
	cmd.Flags().StringVar(&keyText, "key", "", "Symmetric key")
	cmd.Flags().BoolVar(&all, "all", false, "Decrypt every encrypted part")
	return cmd
}

func (a *app) compressCmd() *cobra.Command {
	var subject bool
	cmd := &cobra.Command{
		Use:   "compress [ENVELOPE]",
		Short: "Compress the envelope (or only its subject with --subject)",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			if subject {
				return a.printEnvelope(e.CompressSubject())
			}
			return a.printEnvelope(e.Compress())
		},
	}
	cmd.Flags().BoolVar(&subject, "subject", false, "Compress only the subject")
	return cmd
}

func (a *app) uncompressCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "uncompress [ENVELOPE]",
		Short: "Uncompress the envelope or its subject (every compressed part with --all)",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			var out *envelope.Envelope
			switch {
			case all:
				out, err = e.UncompressAll()
			case e.IsCompressed():
				out, err = e.Uncompress()
			default:
				out, err = e.UncompressSubject()
			}
			if err != nil {
				return err
			}
			return a.printEnvelope(out)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Uncompress every compressed part")
	return cmd
}

func (a *app) saltCmd() *cobra.Command {
	var size, minSize, maxSize int
	cmd := &cobra.Command{
		Use:   "salt [ENVELOPE]",
		Short: "Add a random salt assertion",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			var out *envelope.Envelope
			switch {
			case minSize > 0 || maxSize > 0:
				if size > 0 {
					return usagef("--size cannot be combined with --min/--max")
				}
				out, err = e.AddSaltInRange(minSize, maxSize)
			case size > 0:
				out, err = e.AddSaltWithSize(size)
			default:
				out, err = e.AddSaltWithSize(a.cfg.Salt.Size)
			}
			if err != nil {
				return err
			}
			return a.printEnvelope(out)
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "Salt length in bytes (default from salt.size)")
	cmd.Flags().IntVar(&minSize, "min", 0, "Minimum salt length for a random-length salt")
	cmd.Flags().IntVar(&maxSize, "max", 0, "Maximum salt length for a random-length salt")
	return cmd
}
