package envelope

import (
	"encoding/binary"

	"xdao.co/envelope/digest"
)

// Domain tags prefixed to each hash input so distinct cases never share a preimage.
const (
	domainLeaf       byte = 0x00
	domainNode       byte = 0x01
	domainWrapped    byte = 0x02
	domainAssertion  byte = 0x03
	domainKnownValue byte = 0x04
)

func leafDigest(content []byte) digest.Digest {
	return digest.Sum([]byte{domainLeaf}, content)
}

func wrappedDigest(inner digest.Digest) digest.Digest {
	return digest.Sum([]byte{domainWrapped}, inner[:])
}

func assertionDigest(predicate, object digest.Digest) digest.Digest {
	return digest.Sum([]byte{domainAssertion}, predicate[:], object[:])
}

func knownValueDigest(kv KnownValue) digest.Digest {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(kv))
	return digest.Sum([]byte{domainKnownValue}, b[:])
}

// nodeDigest hashes the subject digest followed by the assertion digests, which the caller
// supplies sorted ascending and unique. The sort makes assertion order irrelevant.
func nodeDigest(subject digest.Digest, sortedAssertions []*Envelope) digest.Digest {
	parts := make([][]byte, 0, len(sortedAssertions)+2)
	parts = append(parts, []byte{domainNode}, subject[:])
	for _, a := range sortedAssertions {
		d := a.digest
		parts = append(parts, d[:])
	}
	return digest.Sum(parts...)
}

// recomputeDigest derives the digest of e from its content without consulting the stored
// value of any non-placeholder node. disclosed, when non-nil, collects the digests of every
// node that is not a placeholder.
func recomputeDigest(e *Envelope, disclosed digest.Set) digest.Digest {
	var d digest.Digest
	switch e.kind {
	case CaseLeaf:
		d = leafDigest(e.leaf)
	case CaseKnownValue:
		d = knownValueDigest(e.known)
	case CaseWrapped:
		d = wrappedDigest(recomputeDigest(e.subject, disclosed))
	case CaseAssertion:
		d = assertionDigest(recomputeDigest(e.predicate, disclosed), recomputeDigest(e.object, disclosed))
	case CaseNode:
		subj := recomputeDigest(e.subject, disclosed)
		ds := make([]digest.Digest, len(e.assertions))
		for i, a := range e.assertions {
			ds[i] = recomputeDigest(a, disclosed)
		}
		set := digest.NewSet(ds...)
		parts := [][]byte{{domainNode}, subj[:]}
		for _, ad := range set.Sorted() {
			ad := ad
			parts = append(parts, ad[:])
		}
		d = digest.Sum(parts...)
	case CaseElided, CaseEncrypted, CaseCompressed:
		return e.digest
	}
	if disclosed != nil {
		disclosed.Add(d)
	}
	return d
}

// Digests returns the digests of every node reachable from e within levelLimit levels.
// Level 0 is e itself; a limit of 0 returns an empty set.
func (e *Envelope) Digests(levelLimit int) digest.Set {
	out := digest.NewSet()
	e.Walk(func(n *Envelope, level int, _ EdgeType) bool {
		if level >= levelLimit {
			return false
		}
		out.Add(n.digest)
		return true
	})
	return out
}

// DeepDigests returns the digests of every node in the tree.
func (e *Envelope) DeepDigests() digest.Set {
	return e.Digests(int(^uint(0) >> 1))
}

// ShallowDigests returns the digests of e, its subject, and its assertions.
func (e *Envelope) ShallowDigests() digest.Set {
	return e.Digests(2)
}

// Contains reports whether a node with digest d occurs anywhere in the tree.
func (e *Envelope) Contains(d digest.Digest) bool {
	found := false
	e.Walk(func(n *Envelope, _ int, _ EdgeType) bool {
		if found {
			return false
		}
		if n.digest == d {
			found = true
			return false
		}
		return true
	})
	return found
}
