package envelope

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"xdao.co/envelope/digest"
)

func aliceKnowsBob(t *testing.T) *Envelope {
	t.Helper()
	return New("Alice").AddAssertion("knows", "Bob")
}

func TestLeafDigest_UsesDomainTagOverCanonicalCBOR(t *testing.T) {
	e := New("Alice")
	// "Alice" as a CBOR text string: 0x65 followed by the UTF-8 bytes.
	want := digest.Sum([]byte{0x00}, append([]byte{0x65}, "Alice"...))
	if e.Digest() != want {
		t.Fatalf("leaf digest mismatch: got %s want %s", e.Digest(), want)
	}
}

func TestDomainTags_SeparateCases(t *testing.T) {
	leaf := New("x")
	wrapped := leaf.Wrap()
	if wrapped.Digest() == leaf.Digest() {
		t.Fatalf("wrapping must change the digest")
	}
	if wrapped.Wrap().Digest() == wrapped.Digest() {
		t.Fatalf("double wrapping must change the digest")
	}
	if NewKnownValue(1).Digest() == New(uint64(1)).Digest() {
		t.Fatalf("known value and integer leaf must not collide")
	}
}

func TestNodeDigest_IndependentOfAssertionOrder(t *testing.T) {
	a := New("Alice").AddAssertion("knows", "Bob").AddAssertion("knows", "Carol")
	b := New("Alice").AddAssertion("knows", "Carol").AddAssertion("knows", "Bob")
	if a.Digest() != b.Digest() {
		t.Fatalf("assertion order must not affect digest")
	}
	if !a.IsIdenticalTo(b) {
		t.Fatalf("expected identical structure")
	}
}

func TestAddAssertion_Deduplicates(t *testing.T) {
	e := aliceKnowsBob(t)
	again := e.AddAssertion("knows", "Bob")
	if again.Digest() != e.Digest() {
		t.Fatalf("duplicate assertion changed digest")
	}
	if n := len(again.Assertions()); n != 1 {
		t.Fatalf("expected 1 assertion, got %d", n)
	}
}

func TestAddAssertion_ToNodeExtendsSet(t *testing.T) {
	e := aliceKnowsBob(t).AddAssertion("age", 30)
	if e.Case() != CaseNode {
		t.Fatalf("expected node, got %s", e.Case())
	}
	if e.Subject().Case() != CaseLeaf {
		t.Fatalf("node subject must not be a node")
	}
	if n := len(e.Assertions()); n != 2 {
		t.Fatalf("expected 2 assertions, got %d", n)
	}
}

func TestAddAssertionEnvelope_RejectsNonAssertion(t *testing.T) {
	_, err := New("Alice").AddAssertionEnvelope(New("Bob"))
	if !IsKind(err, KindInvalidStructure) {
		t.Fatalf("expected InvalidStructure, got %v", err)
	}
	elided := NewAssertion("knows", "Bob").ElideRemovingSet(digest.NewSet(NewAssertion("knows", "Bob").Digest()))
	if _, err := New("Alice").AddAssertionEnvelope(elided); err != nil {
		t.Fatalf("elided assertion should be accepted: %v", err)
	}
}

func TestRemoveAndReplaceAssertion(t *testing.T) {
	e := aliceKnowsBob(t)
	bare := e.RemoveAssertion(NewAssertion("knows", "Bob"))
	if !bare.IsIdenticalTo(New("Alice")) {
		t.Fatalf("removing the only assertion should yield the subject")
	}
	if e.RemoveAssertion(NewAssertion("knows", "Dan")) != e {
		t.Fatalf("removing an absent assertion should return the same envelope")
	}
	r, err := e.ReplaceAssertion(NewAssertion("knows", "Bob"), NewAssertion("knows", "Carol"))
	if err != nil {
		t.Fatalf("ReplaceAssertion: %v", err)
	}
	obj, err := r.ObjectForPredicate("knows")
	if err != nil {
		t.Fatalf("ObjectForPredicate: %v", err)
	}
	if got, _ := Extract[string](obj); got != "Carol" {
		t.Fatalf("expected Carol, got %q", got)
	}
}

func TestObjectForPredicate_Errors(t *testing.T) {
	e := New("Alice").AddAssertion("knows", "Bob").AddAssertion("knows", "Carol")
	if _, err := e.ObjectForPredicate("likes"); !IsKind(err, KindTargetNotFound) {
		t.Fatalf("expected TargetNotFound, got %v", err)
	}
	if _, err := e.ObjectForPredicate("knows"); !IsKind(err, KindInvalidStructure) {
		t.Fatalf("expected InvalidStructure for ambiguous predicate, got %v", err)
	}
	if n := len(e.ObjectsForPredicate("knows")); n != 2 {
		t.Fatalf("expected 2 objects, got %d", n)
	}
}

func TestWrapUnwrap(t *testing.T) {
	e := aliceKnowsBob(t)
	w := e.Wrap().AddAssertion(Note, "wrapped")
	inner, err := w.Unwrap()
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !inner.IsIdenticalTo(e) {
		t.Fatalf("unwrap returned a different envelope")
	}
	if _, err := e.Unwrap(); !IsKind(err, KindInvalidStructure) {
		t.Fatalf("expected InvalidStructure for unwrapped subject, got %v", err)
	}
}

func TestExtract_Types(t *testing.T) {
	if v, err := Extract[int](New(42)); err != nil || v != 42 {
		t.Fatalf("Extract int: %v %v", v, err)
	}
	if v, err := Extract[bool](New(true)); err != nil || !v {
		t.Fatalf("Extract bool: %v %v", v, err)
	}
	if _, err := Extract[string](New(42)); !IsKind(err, KindMalformedInput) {
		t.Fatalf("expected MalformedInput for type mismatch, got %v", err)
	}
	if _, err := Extract[string](NewKnownValue(IsA)); !IsKind(err, KindInvalidStructure) {
		t.Fatalf("expected InvalidStructure for non-leaf, got %v", err)
	}
	id := uuid.MustParse("7b4c42c4-9d3b-4a4a-8b1a-3b4b5a3f2e11")
	got, err := Extract[uuid.UUID](New(id))
	if err != nil || got != id {
		t.Fatalf("Extract uuid: %v %v", got, err)
	}
}

func TestNewLeafCBOR_RejectsMalformed(t *testing.T) {
	if _, err := NewLeafCBOR([]byte{0x65, 'A'}); !IsKind(err, KindMalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
	e, err := NewLeafCBOR([]byte{0x18, 0x2a})
	if err != nil {
		t.Fatalf("NewLeafCBOR: %v", err)
	}
	if !e.IsEquivalentTo(New(42)) {
		t.Fatalf("raw CBOR leaf should match encoded integer")
	}
}

func TestNewLeafCBOR_RejectsNonCanonical(t *testing.T) {
	for name, b := range map[string][]byte{
		"long integer head":  {0x18, 0x01},
		"wide length":        {0x78, 0x01, 'A'},
		"wide float":         {0xfb, 0x3f, 0xf8, 0, 0, 0, 0, 0, 0},
		"unsorted map keys":  {0xa2, 0x02, 0x00, 0x01, 0x00},
		"long date tag head": {0xd8, 0x01, 0x1a, 0x65, 0xe1, 0x1a, 0x80},
	} {
		_, err := NewLeafCBOR(b)
		if !IsKind(err, KindMalformedInput) || RuleID(err) != "ENV-LEAF-005" {
			t.Fatalf("%s: expected ENV-LEAF-005, got %v", name, err)
		}
	}
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, v := range []any{1, "A", 1.5, map[int]int{1: 0, 2: 0}, day, uuid.New(), []byte{1}} {
		want := New(v)
		content, _ := want.LeafCBOR()
		got, err := NewLeafCBOR(content)
		if err != nil {
			t.Fatalf("NewLeafCBOR(%v): %v", v, err)
		}
		if got.Digest() != want.Digest() {
			t.Fatalf("NewLeafCBOR(%v) changed the digest", v)
		}
	}
	// Decoding applies the same check to leaves inside an envelope.
	if got := New(1).Encode(); !bytes.Equal(got, []byte{0xd8, 0x18, 0x41, 0x01}) {
		t.Fatalf("unexpected encoding % x", got)
	}
	if _, err := Decode([]byte{0xd8, 0x18, 0x42, 0x18, 0x01}); RuleID(err) != "ENV-LEAF-005" {
		t.Fatalf("expected non-canonical leaf to be rejected, got %v", err)
	}
}

func TestNew_PanicsOnUnencodable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New(make(chan int))
}

func TestDigests_Levels(t *testing.T) {
	e := aliceKnowsBob(t)
	if e.Digests(0).Len() != 0 {
		t.Fatalf("level 0 must be empty")
	}
	if top := e.Digests(1); top.Len() != 1 || !top.Has(e.Digest()) {
		t.Fatalf("level 1 must hold only the root")
	}
	shallow := e.ShallowDigests()
	if !shallow.Has(New("Alice").Digest()) || !shallow.Has(NewAssertion("knows", "Bob").Digest()) {
		t.Fatalf("shallow digests must include subject and assertions")
	}
	if shallow.Has(New("Bob").Digest()) {
		t.Fatalf("shallow digests must not include objects")
	}
	if !e.DeepDigests().Has(New("Bob").Digest()) || !e.Contains(New("knows").Digest()) {
		t.Fatalf("deep digests must include every node")
	}
}

func TestFormat_Scenario(t *testing.T) {
	e := aliceKnowsBob(t).AddAssertion(IsA, "Person")
	want := strings.Join([]string{
		`"Alice" [`,
		`    "knows": "Bob"`,
		`    'isA': "Person"`,
		`]`,
	}, "\n")
	if got := e.Format(); got != want {
		t.Fatalf("unexpected format:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_WrappedAndPlaceholders(t *testing.T) {
	inner := aliceKnowsBob(t)
	e := inner.Wrap().AddAssertion(Note, "hi")
	got := e.Format()
	for _, want := range []string{"{\n", `    "Alice" [`, `        "knows": "Bob"`, "} [", `'note': "hi"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("format missing %q:\n%s", want, got)
		}
	}
	elided := inner.ElideRemovingTarget(New("Bob"))
	if !strings.Contains(elided.Format(), `"knows": ELIDED`) {
		t.Fatalf("expected elided object:\n%s", elided.Format())
	}
}

func TestFormat_LeafSummaries(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{42, "42"},
		{-7, "-7"},
		{true, "true"},
		{1.5, "1.5"},
		{[]byte{1, 2, 3}, "Bytes(3)"},
		{day, "2024-03-01"},
		{nil, "null"},
	}
	for _, c := range cases {
		if got := New(c.in).Format(); got != c.want {
			t.Fatalf("Format(%v) = %q, want %q", c.in, got, c.want)
		}
	}
	salted, err := New("x").AddSalt()
	if err != nil {
		t.Fatalf("AddSalt: %v", err)
	}
	if !strings.Contains(salted.Format(), "'salt': Salt") {
		t.Fatalf("salt summary missing:\n%s", salted.Format())
	}
}

func TestTreeFormat_ShowsEdges(t *testing.T) {
	out := aliceKnowsBob(t).TreeFormat()
	for _, want := range []string{"NODE", "subj \"Alice\"", "assert ASSERTION", "pred \"knows\"", "obj \"Bob\""} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree format missing %q:\n%s", want, out)
		}
	}
}

func TestObscuredMarker_NamesPlaceholders(t *testing.T) {
	e := aliceKnowsBob(t)
	encrypted, err := e.Encrypt(mustKey(t))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	cases := []struct {
		env     *Envelope
		marker  KnownValue
		summary string
	}{
		{NewElided(e.Digest()), ElidedMarker, "ELIDED"},
		{encrypted, EncryptedMarker, "ENCRYPTED"},
		{e.Compress(), CompressedMarker, "COMPRESSED"},
	}
	for _, c := range cases {
		kv, ok := c.env.ObscuredMarker()
		if !ok || kv != c.marker {
			t.Fatalf("%v: marker = %v %v, want %v", c.env.Case(), kv, ok, c.marker)
		}
		if got := c.env.Summary(); got != c.summary {
			t.Fatalf("%v: summary = %q, want %q", c.env.Case(), got, c.summary)
		}
		if got := c.env.Format(); got != c.summary {
			t.Fatalf("%v: format = %q, want %q", c.env.Case(), got, c.summary)
		}
		if !strings.HasSuffix(c.env.TreeFormat(), " "+c.summary) {
			t.Fatalf("%v: tree format = %q", c.env.Case(), c.env.TreeFormat())
		}
	}
	for _, plain := range []*Envelope{New("Alice"), e, NewKnownValue(ElidedMarker), e.Wrap()} {
		if kv, ok := plain.ObscuredMarker(); ok {
			t.Fatalf("%v reported marker %v", plain.Case(), kv)
		}
	}
	if got := NewKnownValue(ElidedMarker).Format(); got != "'elided'" {
		t.Fatalf("marker known value format = %q", got)
	}
}

func TestCodec_RoundTripIsByteAndDigestIdentical(t *testing.T) {
	key := mustKey(t)
	base := New("Alice").
		AddAssertion("knows", "Bob").
		AddAssertion(IsA, NewKnownValue(Entity)).
		AddAssertion("born", time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC))
	enc, err := base.Obscure(digest.NewSet(New("Bob").Digest()), Encrypt(key), Removing)
	if err != nil {
		t.Fatalf("Obscure: %v", err)
	}
	variants := []*Envelope{
		base,
		base.Wrap(),
		base.ElideRemovingTarget(NewAssertion(IsA, NewKnownValue(Entity))),
		enc,
		base.CompressSubject(),
	}
	for i, e := range variants {
		b := e.Encode()
		got, err := Decode(b)
		if err != nil {
			t.Fatalf("variant %d: Decode: %v", i, err)
		}
		if got.Digest() != e.Digest() || !got.IsIdenticalTo(e) {
			t.Fatalf("variant %d: decoded tree differs", i)
		}
		if !bytes.Equal(got.Encode(), b) {
			t.Fatalf("variant %d: re-encoding is not byte-identical", i)
		}

		txt := e.EncodeString()
		if !strings.HasPrefix(txt, TextPrefix) {
			t.Fatalf("variant %d: missing prefix in %q", i, txt)
		}
		back, err := DecodeString(txt)
		if err != nil {
			t.Fatalf("variant %d: DecodeString: %v", i, err)
		}
		if back.Digest() != e.Digest() {
			t.Fatalf("variant %d: text round trip changed digest", i)
		}
	}
}

func TestCodec_RejectsMalformed(t *testing.T) {
	inputs := map[string][]byte{
		"empty":        nil,
		"untagged":     {0x01},
		"unknown tag":  {0xd8, 0x63, 0x01},
		"short elided": {0xd8, 0xcb, 0x41, 0x00},
		"trailing":     append(New("x").Encode(), 0x00),
	}
	for name, in := range inputs {
		if _, err := Decode(in); !IsKind(err, KindMalformedInput) {
			t.Fatalf("%s: expected MalformedInput, got %v", name, err)
		}
	}
	if _, err := DecodeString("ur:envelope/abc"); !IsKind(err, KindMalformedInput) {
		t.Fatalf("expected MalformedInput for bad prefix, got %v", err)
	}
}

func TestCodec_RejectsUnsortedAssertions(t *testing.T) {
	e := New("Alice").AddAssertion("knows", "Bob").AddAssertion("knows", "Carol")
	as := e.Assertions()
	// Hand-build a node with reversed assertion order.
	bad := &Envelope{kind: CaseNode, subject: e.Subject(), assertions: []*Envelope{as[1], as[0]}}
	if _, err := Decode(bad.Encode()); RuleID(err) != "ENV-CODEC-009" {
		t.Fatalf("expected ENV-CODEC-009, got %v", err)
	}
}

func TestCodec_RejectsExcessiveNesting(t *testing.T) {
	e := New("x")
	for i := 0; i < maxDepth+2; i++ {
		e = e.Wrap()
	}
	if _, err := Decode(e.Encode()); err == nil {
		t.Fatalf("expected nesting error")
	}
}

func TestKnownValues_NamesAndParsing(t *testing.T) {
	if Signed.Name() != "signed" || KnownValue(999).Name() != "999" {
		t.Fatalf("unexpected names")
	}
	kv, err := ParseKnownValue("sskrShare")
	if err != nil || kv != SSKRShare {
		t.Fatalf("ParseKnownValue name: %v %v", kv, err)
	}
	kv, err = ParseKnownValue("12")
	if err != nil || kv != Language {
		t.Fatalf("ParseKnownValue number: %v %v", kv, err)
	}
	if _, err := ParseKnownValue("nope"); err == nil {
		t.Fatalf("expected error")
	}
}
