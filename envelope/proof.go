package envelope

import (
	"xdao.co/envelope/digest"
)

// MakeProof returns a copy of original that reveals only the targets and the paths from the
// root to them; everything else is elided. The proof has the same root digest as original.
// An empty target set yields the elided root.
func MakeProof(original *Envelope, targets digest.Set) (*Envelope, error) {
	if len(targets) > 0 {
		all := original.DeepDigests()
		for d := range targets {
			if !all.Has(d) {
				return nil, newError(KindTargetNotFound, "ENV-PROOF-001", "target "+d.Short()+" not found in envelope")
			}
		}
	}
	return original.Obscure(targets, Elide(), Revealing)
}

// VerifyProof reports whether proof hashes to root and discloses every target at a node that
// is not a placeholder. Stored digests are trusted only at placeholders.
func VerifyProof(root digest.Digest, proof *Envelope, targets digest.Set) bool {
	if proof == nil {
		return false
	}
	disclosed := digest.NewSet()
	if recomputeDigest(proof, disclosed) != root {
		return false
	}
	for d := range targets {
		if !disclosed.Has(d) {
			return false
		}
	}
	return true
}

// ConfirmProof is VerifyProof against the digest of a trusted envelope.
func (e *Envelope) ConfirmProof(proof *Envelope, targets digest.Set) bool {
	return VerifyProof(e.digest, proof, targets)
}
