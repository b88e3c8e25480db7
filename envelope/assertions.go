package envelope

// AddAssertion returns a copy of e with the assertion (predicate, object) added.
// Adding an assertion that is already present returns an equivalent envelope.
func (e *Envelope) AddAssertion(predicate, object any) *Envelope {
	return newNode(e, []*Envelope{NewAssertion(predicate, object)})
}

// AddAssertionEnvelope adds an existing assertion envelope, which may be an obscured
// placeholder of an assertion.
func (e *Envelope) AddAssertionEnvelope(assertion *Envelope) (*Envelope, error) {
	if err := checkAssertion(assertion); err != nil {
		return nil, err
	}
	return newNode(e, []*Envelope{assertion}), nil
}

// AddAssertions adds several assertion envelopes at once.
func (e *Envelope) AddAssertions(assertions ...*Envelope) (*Envelope, error) {
	for _, a := range assertions {
		if err := checkAssertion(a); err != nil {
			return nil, err
		}
	}
	return newNode(e, assertions), nil
}

func checkAssertion(a *Envelope) error {
	if a == nil {
		return newError(KindInvalidStructure, "ENV-STRUCT-003", "nil assertion")
	}
	if a.kind != CaseAssertion && !a.IsObscured() {
		return newError(KindInvalidStructure, "ENV-STRUCT-003", "assertion set members must be assertions or obscured assertions")
	}
	return nil
}

// RemoveAssertion returns e without the assertion whose digest matches target's.
// If no assertion matches, e is returned unchanged. Removing the last assertion yields the
// bare subject.
func (e *Envelope) RemoveAssertion(target *Envelope) *Envelope {
	if e.kind != CaseNode {
		return e
	}
	kept := make([]*Envelope, 0, len(e.assertions))
	for _, a := range e.assertions {
		if a.digest != target.digest {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(e.assertions) {
		return e
	}
	return newNode(e.subject, kept)
}

// ReplaceAssertion swaps old for replacement.
func (e *Envelope) ReplaceAssertion(old, replacement *Envelope) (*Envelope, error) {
	return e.RemoveAssertion(old).AddAssertionEnvelope(replacement)
}

// ReplaceSubject returns e with its subject swapped and its assertions kept.
func (e *Envelope) ReplaceSubject(subject *Envelope) *Envelope {
	if e.kind != CaseNode {
		return subject
	}
	return newNode(subject, e.assertions)
}

// AssertionsWithPredicate returns the assertions whose predicate has the digest of
// New(predicate). Obscured assertions never match.
func (e *Envelope) AssertionsWithPredicate(predicate any) []*Envelope {
	want := New(predicate).digest
	var out []*Envelope
	for _, a := range e.Assertions() {
		if a.kind == CaseAssertion && a.predicate.digest == want {
			out = append(out, a)
		}
	}
	return out
}

// ObjectsForPredicate returns the objects of every assertion with the given predicate.
func (e *Envelope) ObjectsForPredicate(predicate any) []*Envelope {
	as := e.AssertionsWithPredicate(predicate)
	out := make([]*Envelope, 0, len(as))
	for _, a := range as {
		out = append(out, a.object)
	}
	return out
}

// ObjectForPredicate returns the single object for predicate. It fails when there is none or
// more than one.
func (e *Envelope) ObjectForPredicate(predicate any) (*Envelope, error) {
	objs := e.ObjectsForPredicate(predicate)
	switch len(objs) {
	case 0:
		return nil, newError(KindTargetNotFound, "ENV-STRUCT-004", "no assertion with predicate")
	case 1:
		return objs[0], nil
	default:
		return nil, newError(KindInvalidStructure, "ENV-STRUCT-005", "more than one assertion with predicate")
	}
}
