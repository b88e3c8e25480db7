package main

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"xdao.co/envelope/envelope"
)

func (a *app) assertionCmd() *cobra.Command {
	cmd := groupCmd("assertion", "Work with an envelope's assertions")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <pred-type> <pred-value> <obj-type> <obj-value> [ENVELOPE]",
		Short: "Add an assertion built from typed predicate and object values",
		Args:  argsRange(4, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := parseValue(args[0], args[1])
			if err != nil {
				return err
			}
			obj, err := parseValue(args[2], args[3])
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 4)
			if err != nil {
				return err
			}
			return a.printEnvelope(e.AddAssertion(pred, obj))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "all [ENVELOPE]",
		Short: "Print every assertion, one envelope per line",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			for _, as := range e.Assertions() {
				if err := a.printEnvelope(as); err != nil {
					return err
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "count [ENVELOPE]",
		Short: "Print the number of assertions",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			return a.printLine(strconv.Itoa(len(e.Assertions())))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "find <pred-type> <pred-value> [ENVELOPE]",
		Short: "Print the assertions with the given predicate",
		Args:  argsRange(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pred, err := parseValue(args[0], args[1])
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 2)
			if err != nil {
				return err
			}
			for _, as := range e.AssertionsWithPredicate(pred) {
				if err := a.printEnvelope(as); err != nil {
					return err
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <ASSERTION> [ENVELOPE]",
		Short: "Remove an assertion given as an envelope",
		Args:  argsRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := envelope.DecodeString(args[0])
			if err != nil {
				return err
			}
			e, err := a.readEnvelope(args, 1)
			if err != nil {
				return err
			}
			return a.printEnvelope(e.RemoveAssertion(target))
		},
	})
	return cmd
}

func (a *app) extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <type> [ENVELOPE]",
		Short: "Print the envelope's subject as the given type",
		Long:  "Types: string, int, uint, float, bool, bytes, date, uuid, known, cbor, envelope, wrapped, assertion, predicate, object",
		Args:  argsRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 1)
			if err != nil {
				return err
			}
			out, err := extract(args[0], e)
			if err != nil {
				return err
			}
			for _, line := range out {
				if err := a.printLine(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func extract(typ string, e *envelope.Envelope) ([]string, error) {
	subject := e.Subject()
	switch typ {
	case "string":
		s, err := envelope.Extract[string](e)
		return []string{s}, err
	case "int":
		n, err := envelope.Extract[int64](e)
		return []string{strconv.FormatInt(n, 10)}, err
	case "uint":
		n, err := envelope.Extract[uint64](e)
		return []string{strconv.FormatUint(n, 10)}, err
	case "float":
		f, err := envelope.Extract[float64](e)
		return []string{strconv.FormatFloat(f, 'g', -1, 64)}, err
	case "bool":
		b, err := envelope.Extract[bool](e)
		return []string{strconv.FormatBool(b)}, err
	case "bytes":
		b, err := envelope.Extract[[]byte](e)
		return []string{hex.EncodeToString(b)}, err
	case "date":
		t, err := envelope.Extract[time.Time](e)
		return []string{formatDate(t)}, err
	case "uuid":
		u, err := envelope.Extract[uuid.UUID](e)
		return []string{u.String()}, err
	case "known":
		kv, ok := subject.KnownValue()
		if !ok {
			return nil, usagef("subject is not a known value")
		}
		return []string{kv.Name()}, nil
	case "cbor":
		b, ok := subject.LeafCBOR()
		if !ok {
			return nil, usagef("subject is not a leaf")
		}
		return []string{hex.EncodeToString(b)}, nil
	case "envelope":
		return []string{subject.EncodeString()}, nil
	case "wrapped":
		inner, err := subject.Unwrap()
		if err != nil {
			return nil, err
		}
		return []string{inner.EncodeString()}, nil
	case "assertion", "predicate", "object":
		p, err := subject.Predicate()
		if err != nil {
			return nil, err
		}
		o, err := subject.Object()
		if err != nil {
			return nil, err
		}
		switch typ {
		case "predicate":
			return []string{p.EncodeString()}, nil
		case "object":
			return []string{o.EncodeString()}, nil
		}
		return []string{p.EncodeString(), o.EncodeString()}, nil
	default:
		return nil, usagef("unknown extract type %q", typ)
	}
}
