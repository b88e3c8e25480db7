package main

import (
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/envelope/digest"
	"xdao.co/envelope/envelope"
)

func (a *app) proofCmd() *cobra.Command {
	cmd := groupCmd("proof", "Create and confirm inclusion proofs")

	var createTargets []string
	create := &cobra.Command{
		Use:   "create [ENVELOPE]",
		Short: "Print the smallest view of the envelope that reveals the targets",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseTargets(createTargets)
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			p, err := envelope.MakeProof(e, targets)
			if err != nil {
				return err
			}
			return a.printEnvelope(p)
		},
	}
	create.Flags().StringArrayVar(&createTargets, "target", nil, "Target digest(s), hex or CID; repeatable")
	cmd.AddCommand(create)

	var rootText string
	var confirmTargets []string
	var silent bool
	confirm := &cobra.Command{
		Use:   "confirm [PROOF]",
		Short: "Check that the proof matches the root digest and reveals the targets",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := parseRoot(rootText)
			if err != nil {
				return err
			}
			targets, err := parseTargets(confirmTargets)
			if err != nil {
				return err
			}
			p, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			if !envelope.VerifyProof(root, p, targets) {
				return &envelope.Error{Kind: envelope.KindVerificationFailed, RuleID: "ENV-PROOF-002", Message: "proof does not confirm the targets"}
			}
			if silent {
				return nil
			}
			return a.printEnvelope(p)
		},
	}
	confirm.Flags().StringVar(&rootText, "root", "", "Root digest (hex or CID) or the original envelope")
	confirm.Flags().StringArrayVar(&confirmTargets, "target", nil, "Target digest(s), hex or CID; repeatable")
	confirm.Flags().BoolVarP(&silent, "silent", "s", false, "Print nothing on success")
	cmd.AddCommand(confirm)
	return cmd
}

func parseRoot(s string) (digest.Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return digest.Digest{}, usagef("--root is required")
	}
	if strings.HasPrefix(s, envelope.TextPrefix) {
		e, err := envelope.DecodeString(s)
		if err != nil {
			return digest.Digest{}, err
		}
		return e.Digest(), nil
	}
	d, err := digest.Parse(s)
	if err != nil {
		return digest.Digest{}, usagef("--root: %v", err)
	}
	return d, nil
}
