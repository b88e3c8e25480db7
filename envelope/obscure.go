package envelope

import (
	"crypto/rand"

	"xdao.co/envelope/digest"
)

type actionKind uint8

const (
	actionElide actionKind = iota + 1
	actionEncrypt
	actionCompress
)

// Action says how an obscured subtree is replaced.
type Action struct {
	kind actionKind
	key  SymmetricKey
}

// Elide replaces subtrees with digest-only placeholders.
func Elide() Action { return Action{kind: actionElide} }

// Encrypt replaces subtrees with placeholders sealed under key.
func Encrypt(key SymmetricKey) Action { return Action{kind: actionEncrypt, key: key} }

// Compress replaces subtrees with compressed placeholders.
func Compress() Action { return Action{kind: actionCompress} }

func (a Action) String() string {
	switch a.kind {
	case actionElide:
		return "elide"
	case actionEncrypt:
		return "encrypt"
	case actionCompress:
		return "compress"
	}
	return "invalid"
}

// Direction selects which side of the target set is obscured.
type Direction uint8

const (
	// Removing obscures the targets.
	Removing Direction = iota + 1
	// Revealing obscures everything except the targets and the paths leading to them.
	Revealing
)

func (d Direction) String() string {
	switch d {
	case Removing:
		return "removing"
	case Revealing:
		return "revealing"
	}
	return "invalid"
}

// Obscure returns a digest-equivalent copy of e with subtrees replaced according to action
// and direction. The root digest never changes; unchanged subtrees are shared with e.
//
// In Removing mode children are processed before their parent, so a parent in targets is
// obscured over its already-obscured children. In Revealing mode a subtree outside the keep
// set is replaced whole.
func (e *Envelope) Obscure(targets digest.Set, action Action, dir Direction) (*Envelope, error) {
	if action.kind == 0 {
		return nil, newError(KindInvalidStructure, "ENV-OBSCURE-001", "invalid obscure action")
	}
	switch dir {
	case Removing:
		return e.obscureRemoving(targets, action)
	case Revealing:
		keep := digest.NewSet()
		markPaths(e, targets, keep)
		return e.obscureRevealing(keep, action)
	}
	return nil, newError(KindInvalidStructure, "ENV-OBSCURE-002", "invalid obscure direction")
}

func (e *Envelope) obscureRemoving(targets digest.Set, action Action) (*Envelope, error) {
	n, err := e.mapChildren(func(c *Envelope) (*Envelope, error) {
		return c.obscureRemoving(targets, action)
	})
	if err != nil {
		return nil, err
	}
	if !targets.Has(e.digest) {
		return n, nil
	}
	return action.apply(n)
}

func (e *Envelope) obscureRevealing(keep digest.Set, action Action) (*Envelope, error) {
	if !keep.Has(e.digest) {
		return action.apply(e)
	}
	return e.mapChildren(func(c *Envelope) (*Envelope, error) {
		return c.obscureRevealing(keep, action)
	})
}

// markPaths adds to keep every node that is a target or has a target below it.
func markPaths(e *Envelope, targets, keep digest.Set) bool {
	found := targets.Has(e.digest)
	switch e.kind {
	case CaseNode:
		if markPaths(e.subject, targets, keep) {
			found = true
		}
		for _, a := range e.assertions {
			if markPaths(a, targets, keep) {
				found = true
			}
		}
	case CaseWrapped:
		found = markPaths(e.subject, targets, keep) || found
	case CaseAssertion:
		p := markPaths(e.predicate, targets, keep)
		o := markPaths(e.object, targets, keep)
		found = found || p || o
	}
	if found {
		keep.Add(e.digest)
	}
	return found
}

func (a Action) apply(e *Envelope) (*Envelope, error) {
	switch a.kind {
	case actionElide:
		if e.kind == CaseElided {
			return e, nil
		}
		return NewElided(e.digest), nil
	case actionEncrypt:
		if e.kind == CaseElided || e.kind == CaseEncrypted {
			return e, nil
		}
		return seal(e, a.key, rand.Reader)
	case actionCompress:
		return e.Compress(), nil
	}
	return nil, newError(KindInvalidStructure, "ENV-OBSCURE-001", "invalid obscure action")
}

// ElideRemovingSet elides every subtree whose digest is in targets.
func (e *Envelope) ElideRemovingSet(targets digest.Set) *Envelope {
	return e.mustElide(targets, Removing)
}

// ElideRevealingSet elides everything except targets and their ancestors.
func (e *Envelope) ElideRevealingSet(targets digest.Set) *Envelope {
	return e.mustElide(targets, Revealing)
}

// ElideRemovingTarget elides the subtrees equivalent to target.
func (e *Envelope) ElideRemovingTarget(target *Envelope) *Envelope {
	return e.ElideRemovingSet(digest.NewSet(target.digest))
}

// ElideRevealingTarget elides everything except target and the path to it.
func (e *Envelope) ElideRevealingTarget(target *Envelope) *Envelope {
	return e.ElideRevealingSet(digest.NewSet(target.digest))
}

func (e *Envelope) mustElide(targets digest.Set, dir Direction) *Envelope {
	out, err := e.Obscure(targets, Elide(), dir)
	if err != nil {
		// Elision has no failure mode.
		panic(err)
	}
	return out
}

// mapChildren rebuilds e with fn applied to each direct child, sharing e when nothing
// changed. Children are assumed to keep their digests.
func (e *Envelope) mapChildren(fn func(*Envelope) (*Envelope, error)) (*Envelope, error) {
	switch e.kind {
	case CaseWrapped:
		inner, err := fn(e.subject)
		if err != nil {
			return nil, err
		}
		if inner == e.subject {
			return e, nil
		}
		return inner.Wrap(), nil
	case CaseAssertion:
		p, err := fn(e.predicate)
		if err != nil {
			return nil, err
		}
		o, err := fn(e.object)
		if err != nil {
			return nil, err
		}
		if p == e.predicate && o == e.object {
			return e, nil
		}
		return newAssertion(p, o), nil
	case CaseNode:
		subj, err := fn(e.subject)
		if err != nil {
			return nil, err
		}
		changed := subj != e.subject
		as := make([]*Envelope, len(e.assertions))
		for i, a := range e.assertions {
			if as[i], err = fn(a); err != nil {
				return nil, err
			}
			changed = changed || as[i] != a
		}
		if !changed {
			return e, nil
		}
		return rebuildNode(subj, as), nil
	}
	return e, nil
}

// transform applies fn top-down. When fn replaces a node, the replacement is transformed
// again so placeholders revealed by the replacement are handled too.
func (e *Envelope) transform(fn func(*Envelope) (*Envelope, bool, error)) (*Envelope, error) {
	n, replaced, err := fn(e)
	if err != nil {
		return nil, err
	}
	if replaced {
		return n.transform(fn)
	}
	return e.mapChildren(func(c *Envelope) (*Envelope, error) {
		return c.transform(fn)
	})
}

// rebuildNode reassembles a node whose children were replaced by digest-equivalent forms,
// so the stored assertion order stays valid.
func rebuildNode(subject *Envelope, assertions []*Envelope) *Envelope {
	if subject.kind == CaseNode {
		return newNode(subject, assertions)
	}
	return &Envelope{
		kind:       CaseNode,
		subject:    subject,
		assertions: assertions,
		digest:     nodeDigest(subject.digest, assertions),
	}
}
