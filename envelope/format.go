package envelope

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const indentUnit = "    "

// Format renders e in the human-readable envelope notation:
//
//	"Alice" [
//	    "knows": "Bob"
//	    'signed': Signature
//	]
func (e *Envelope) Format() string {
	return strings.Join(formatLines(e), "\n")
}

func formatLines(e *Envelope) []string {
	switch e.kind {
	case CaseLeaf:
		return []string{leafSummary(e.leaf)}
	case CaseKnownValue:
		return []string{"'" + e.known.Name() + "'"}
	case CaseElided, CaseEncrypted, CaseCompressed:
		return []string{placeholderSummary(e)}
	case CaseWrapped:
		lines := []string{"{"}
		lines = append(lines, indent(formatLines(e.subject))...)
		return append(lines, "}")
	case CaseAssertion:
		p := formatLines(e.predicate)
		o := formatLines(e.object)
		lines := append([]string(nil), p[:len(p)-1]...)
		lines = append(lines, p[len(p)-1]+": "+o[0])
		return append(lines, o[1:]...)
	case CaseNode:
		items := make([][]string, 0, len(e.assertions))
		for _, a := range e.assertions {
			items = append(items, formatLines(a))
		}
		sort.SliceStable(items, func(i, j int) bool {
			return strings.Join(items[i], "\n") < strings.Join(items[j], "\n")
		})
		s := formatLines(e.subject)
		lines := append([]string(nil), s[:len(s)-1]...)
		lines = append(lines, s[len(s)-1]+" [")
		for _, item := range items {
			lines = append(lines, indent(item)...)
		}
		return append(lines, "]")
	}
	return []string{"<invalid>"}
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = indentUnit + l
	}
	return out
}

// Summary returns a one-line description of e without its children.
func (e *Envelope) Summary() string {
	switch e.kind {
	case CaseLeaf:
		return leafSummary(e.leaf)
	case CaseKnownValue:
		return "'" + e.known.Name() + "'"
	case CaseNode:
		return "NODE"
	case CaseWrapped:
		return "WRAPPED"
	case CaseAssertion:
		return "ASSERTION"
	case CaseElided, CaseEncrypted, CaseCompressed:
		return placeholderSummary(e)
	}
	return "<invalid>"
}

// ObscuredMarker returns the known value standing in for an elided, encrypted or
// compressed envelope. It reports false for every other case.
func (e *Envelope) ObscuredMarker() (KnownValue, bool) {
	switch e.kind {
	case CaseElided:
		return ElidedMarker, true
	case CaseEncrypted:
		return EncryptedMarker, true
	case CaseCompressed:
		return CompressedMarker, true
	}
	return 0, false
}

// placeholderSummary renders an obscured envelope as its marker name in upper case.
func placeholderSummary(e *Envelope) string {
	kv, _ := e.ObscuredMarker()
	return strings.ToUpper(kv.Name())
}

// TreeFormat renders one line per node with its short digest, edge, and summary.
func (e *Envelope) TreeFormat() string {
	var b strings.Builder
	e.Walk(func(n *Envelope, level int, edge EdgeType) bool {
		b.WriteString(strings.Repeat(indentUnit, level))
		b.WriteString(n.digest.Short())
		if s := edge.String(); s != "" {
			b.WriteString(" " + s)
		}
		b.WriteString(" " + n.Summary() + "\n")
		return true
	})
	return strings.TrimSuffix(b.String(), "\n")
}

func leafSummary(content []byte) string {
	if tag, ok := leafTag(content); ok {
		switch tag {
		case tagSalt:
			return "Salt"
		case tagSignature:
			return "Signature"
		case tagSSKRShare:
			return "SSKRShare"
		case tagDate:
			var t time.Time
			if err := decMode.Unmarshal(content, &t); err == nil {
				return formatDate(t)
			}
		case tagUUID:
			var u uuid.UUID
			if err := decMode.Unmarshal(content, &u); err == nil {
				return "UUID(" + u.String() + ")"
			}
		}
		return "CBOR"
	}
	var v any
	if err := decMode.Unmarshal(content, &v); err != nil {
		return "CBOR"
	}
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "null"
	case []byte:
		return fmt.Sprintf("Bytes(%d)", len(x))
	}
	return "CBOR"
}

func formatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
