package main

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"xdao.co/envelope/envelope"
)

// dataTypes lists the value types accepted by "subject type" and "assertion add".
var dataTypes = []string{"string", "int", "uint", "float", "bool", "null", "bytes", "date", "uuid", "known", "cbor", "envelope", "wrapped"}

func (a *app) subjectCmd() *cobra.Command {
	cmd := groupCmd("subject", "Create an envelope from a subject value")
	cmd.AddCommand(&cobra.Command{
		Use:   "type <type> <value>",
		Short: "Create an envelope whose subject is a typed value",
		Long:  "Types: " + strings.Join(dataTypes, ", "),
		Args:  argsRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			e, err := parseValue(args[0], value)
			if err != nil {
				return err
			}
			return a.printEnvelope(e)
		},
	})
	return cmd
}

// parseValue builds an envelope from a command-line value of the given type.
func parseValue(typ, value string) (*envelope.Envelope, error) {
	switch typ {
	case "string":
		return envelope.NewLeaf(value)
	case "int":
		n, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, usagef("invalid int %q", value)
		}
		if n.IsInt64() {
			return envelope.NewLeaf(n.Int64())
		}
		return envelope.NewLeaf(n)
	case "uint":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, usagef("invalid uint %q", value)
		}
		return envelope.NewLeaf(n)
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, usagef("invalid float %q", value)
		}
		return envelope.NewLeaf(f)
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, usagef("invalid bool %q", value)
		}
		return envelope.NewLeaf(b)
	case "null":
		return envelope.NewLeaf(nil)
	case "bytes":
		b, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
		if err != nil {
			return nil, usagef("invalid hex bytes: %v", err)
		}
		return envelope.NewLeaf(b)
	case "date":
		t, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		return envelope.NewLeaf(t)
	case "uuid":
		u, err := uuid.Parse(value)
		if err != nil {
			return nil, usagef("invalid uuid: %v", err)
		}
		return envelope.NewLeaf(u)
	case "known":
		kv, err := envelope.ParseKnownValue(value)
		if err != nil {
			return nil, usagef("%v", err)
		}
		return envelope.NewKnownValue(kv), nil
	case "cbor":
		b, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
		if err != nil {
			return nil, usagef("invalid hex CBOR: %v", err)
		}
		return envelope.NewLeafCBOR(b)
	case "envelope":
		return envelope.DecodeString(value)
	case "wrapped":
		e, err := envelope.DecodeString(value)
		if err != nil {
			return nil, err
		}
		return e.Wrap(), nil
	default:
		return nil, usagef("unknown data type %q (want one of %s)", typ, strings.Join(dataTypes, ", "))
	}
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (midnight UTC).
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, usagef("invalid date %q (want RFC 3339 or YYYY-MM-DD)", s)
}

// formatDate is the inverse of parseDate for extract output.
func formatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
