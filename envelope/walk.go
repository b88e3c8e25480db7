package envelope

// EdgeType names the relation between a visited node and its parent.
type EdgeType uint8

const (
	EdgeNone EdgeType = iota
	EdgeSubject
	EdgeAssertion
	EdgePredicate
	EdgeObject
	EdgeContent
)

func (t EdgeType) String() string {
	switch t {
	case EdgeSubject:
		return "subj"
	case EdgeAssertion:
		return "assert"
	case EdgePredicate:
		return "pred"
	case EdgeObject:
		return "obj"
	case EdgeContent:
		return "cont"
	default:
		return ""
	}
}

// Visitor is called for every node in depth-first pre-order. Returning false skips the
// node's children.
type Visitor func(e *Envelope, level int, edge EdgeType) bool

// Walk visits e and its descendants depth-first. Node subjects are visited before
// assertions, which are visited in digest order. Placeholders have no children.
func (e *Envelope) Walk(visit Visitor) {
	e.walk(visit, 0, EdgeNone)
}

func (e *Envelope) walk(visit Visitor, level int, edge EdgeType) {
	if !visit(e, level, edge) {
		return
	}
	switch e.kind {
	case CaseNode:
		e.subject.walk(visit, level+1, EdgeSubject)
		for _, a := range e.assertions {
			a.walk(visit, level+1, EdgeAssertion)
		}
	case CaseWrapped:
		e.subject.walk(visit, level+1, EdgeContent)
	case CaseAssertion:
		e.predicate.walk(visit, level+1, EdgePredicate)
		e.object.walk(visit, level+1, EdgeObject)
	}
}
