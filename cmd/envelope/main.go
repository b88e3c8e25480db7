// Command envelope builds, inspects, transforms, signs, and stores envelopes from the shell.
//
// Envelopes are passed as "envelope:..." text: the last positional argument when present,
// otherwise one envelope read from stdin. Commands that produce an envelope print it on one
// line so they can be piped into the next command.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/envelope/config"
	"xdao.co/envelope/envelope"
	"xdao.co/envelope/keys"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app carries the streams and the state built in PersistentPreRunE.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	keysDir    string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

// usageError marks errors caused by how the command was invoked; run maps them to exit 2.
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut, log: zap.NewNop()}
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err == nil {
		return 0
	}
	if rule := envelope.RuleID(err); rule != "" {
		fmt.Fprintf(errOut, "error: %s: %v\n", rule, err)
	} else {
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "envelope",
		Short:         "Selective-disclosure envelope tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(a.configPath)
			if err != nil {
				return err
			}
			if a.keysDir != "" {
				cfg.Keys.Dir = a.keysDir
			}
			logger, err := cfg.Logging.Build(a.verbose)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, logger
			a.log.Debug("command", zap.String("path", cmd.CommandPath()))
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.keysDir, "keys-dir", "", "Key store directory (overrides keys.dir)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(
		a.subjectCmd(),
		a.assertionCmd(),
		a.attachmentCmd(),
		a.extractCmd(),
		a.formatCmd(),
		a.digestCmd(),
		a.elideCmd(),
		a.encryptCmd(),
		a.decryptCmd(),
		a.compressCmd(),
		a.uncompressCmd(),
		a.saltCmd(),
		a.signCmd(),
		a.verifyCmd(),
		a.generateCmd(),
		a.sskrCmd(),
		a.proofCmd(),
		a.keyCmd(),
		a.storeCmd(),
	)
	return root
}

// groupCmd is a parent command that only dispatches to subcommands.
func groupCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown %s subcommand %q", cmd.Name(), args[0])
			}
			return usagef("%s requires a subcommand", cmd.Name())
		},
	}
}

// argsRange validates the positional argument count as a usage error.
func argsRange(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || (max >= 0 && len(args) > max) {
			return usagef("%s: unexpected arguments %q (usage: %s)", cmd.Name(), args, cmd.UseLine())
		}
		return nil
	}
}

// readEnvelope decodes args[idx] when present, otherwise one envelope from stdin.
func (a *app) readEnvelope(args []string, idx int) (*envelope.Envelope, error) {
	text, err := a.readArgOrStdin(args, idx)
	if err != nil {
		return nil, err
	}
	return envelope.DecodeString(text)
}

// readEnvelopes decodes each argument, or each non-empty stdin line when args is empty.
func (a *app) readEnvelopes(args []string) ([]*envelope.Envelope, error) {
	texts := args
	if len(texts) == 0 {
		sc := bufio.NewScanner(a.in)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				texts = append(texts, line)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
	}
	out := make([]*envelope.Envelope, 0, len(texts))
	for _, t := range texts {
		e, err := envelope.DecodeString(strings.TrimSpace(t))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (a *app) printEnvelope(e *envelope.Envelope) error {
	_, err := fmt.Fprintln(a.out, e.EncodeString())
	return err
}

func (a *app) printEnvelopes(es []*envelope.Envelope) error {
	for _, e := range es {
		if err := a.printEnvelope(e); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printLine(s string) error {
	_, err := fmt.Fprintln(a.out, s)
	return err
}

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(a.cfg.Keys.Dir)
}

// readArgOrStdin returns args[idx] or the trimmed contents of stdin.
func (a *app) readArgOrStdin(args []string, idx int) (string, error) {
	if idx < len(args) {
		return strings.TrimSpace(args[idx]), nil
	}
	b, err := io.ReadAll(a.in)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", usagef("no input given on the command line or stdin")
	}
	return s, nil
}
