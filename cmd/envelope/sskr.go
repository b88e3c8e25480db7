package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/envelope/envelope"
	"xdao.co/envelope/sskr"
)

func (a *app) sskrCmd() *cobra.Command {
	cmd := groupCmd("sskr", "Split an envelope into threshold shares and join them back")

	var threshold, count int
	var keyText string
	split := &cobra.Command{
		Use:   "split [ENVELOPE]",
		Short: "Encrypt the envelope and print one share envelope per line",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				key envelope.SymmetricKey
				err error
			)
			if keyText != "" {
				if key, err = envelope.ParseSymmetricKey(keyText); err != nil {
					return usagef("--key: %v", err)
				}
			} else if key, err = envelope.NewSymmetricKey(); err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			shares, err := e.SSKRSplit(sskr.Splitter{}, threshold, count, key)
			if err != nil {
				return err
			}
			a.log.Debug("split", zap.Int("threshold", threshold), zap.Int("count", count))
			for _, s := range shares {
				if err := a.printEnvelope(s); err != nil {
					return err
				}
			}
			return nil
		},
	}
	split.Flags().IntVar(&threshold, "threshold", 1, "Shares needed to recover")
	split.Flags().IntVar(&count, "count", 1, "Shares to produce")
	split.Flags().StringVar(&keyText, "key", "", "Content key (random when omitted)")
	cmd.AddCommand(split)

	cmd.AddCommand(&cobra.Command{
		Use:   "join [SHARE...]",
		Short: "Recover the envelope from shares given as arguments or stdin lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := a.readEnvelopes(args)
			if err != nil {
				return err
			}
			e, err := envelope.SSKRJoin(sskr.Splitter{}, shares)
			if err != nil {
				return err
			}
			return a.printEnvelope(e)
		},
	})
	return cmd
}
