// Package analysis defines the contract between the static escape/shape/
// liveness analysis pipeline and the memory substrate (§4.8). The pipeline
// itself is an external compiler-side collaborator; this package carries
// only the shared vocabulary (the types below) and a reference
// implementation usable in tests and standalone tools, modeled on the
// runtime's own lifetime/escape tracking.
package analysis

// EscapeClass classifies how far a value escapes its allocation site.
type EscapeClass int

const (
	EscapeNone EscapeClass = iota
	EscapeArgument
	EscapeReturn
	EscapeCaptured
	EscapeGlobal
)

func (e EscapeClass) String() string {
	switch e {
	case EscapeNone:
		return "none"
	case EscapeArgument:
		return "argument"
	case EscapeReturn:
		return "return"
	case EscapeCaptured:
		return "captured"
	case EscapeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Shape classifies the reference structure rooted at an allocation site.
type Shape int

const (
	ShapeTree Shape = iota
	ShapeDAG
	ShapeCyclic
)

func (s Shape) String() string {
	switch s {
	case ShapeTree:
		return "tree"
	case ShapeDAG:
		return "dag"
	case ShapeCyclic:
		return "cyclic"
	default:
		return "unknown"
	}
}

// SizeHint describes what the pipeline knows about an allocation's size.
type SizeHint struct {
	Kind  SizeKind
	Exact uintptr // valid iff Kind == SizeStatic
}

type SizeKind int

const (
	SizeStatic SizeKind = iota
	SizeDynamic
	SizeUnknown
)

// DirectiveKind is the allocation strategy the pipeline assigns to a site.
type DirectiveKind int

const (
	DirectiveStack DirectiveKind = iota
	DirectiveScratch
	DirectiveRegion
	DirectiveComponent
)

func (d DirectiveKind) String() string {
	switch d {
	case DirectiveStack:
		return "stack"
	case DirectiveScratch:
		return "scratch"
	case DirectiveRegion:
		return "region"
	case DirectiveComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Directive is the decision the pipeline emits per allocation site: a
// strategy plus, for DirectiveRegion, the target region's identity (the
// caller's region, a closure's region, or the global region, per the
// decision rules in §4.8 — represented here as an opaque string handle
// since region identity is a compiler-side concept).
type Directive struct {
	Kind         DirectiveKind
	RegionTarget string
}

// OwnershipMode classifies how a parameter is used by its callee.
type OwnershipMode int

const (
	OwnershipBorrowed OwnershipMode = iota
	OwnershipOwned
	OwnershipConsumed
)

func (o OwnershipMode) String() string {
	switch o {
	case OwnershipBorrowed:
		return "borrowed"
	case OwnershipOwned:
		return "owned"
	case OwnershipConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// Site is everything the pipeline knows about one allocation point, and
// everything the runtime needs to route the allocation (§4.8's escape
// class, shape and ownership mode plus the size hint that feeds the
// decision rules).
type Site struct {
	ID        string
	Escape    EscapeClass
	Shape     Shape
	Size      SizeHint
	Ownership OwnershipMode
}

// Decide applies §4.8's decision rules to a Site and returns the
// allocation directive the runtime should follow. This is the reference
// implementation; a real pipeline may use richer control-flow information
// but must agree with these rules on the inputs they share.
func Decide(s Site) Directive {
	switch {
	case s.Escape == EscapeNone && s.Shape == ShapeTree:
		return Directive{Kind: DirectiveStack}

	case s.Escape == EscapeNone && (s.Shape == ShapeDAG || s.Shape == ShapeCyclic):
		return Directive{Kind: DirectiveScratch}

	case s.Shape == ShapeCyclic && s.Escape != EscapeNone:
		return Directive{Kind: DirectiveComponent}

	case s.Escape == EscapeReturn:
		return Directive{Kind: DirectiveRegion, RegionTarget: "caller"}

	case s.Escape == EscapeCaptured:
		return Directive{Kind: DirectiveRegion, RegionTarget: "closure"}

	case s.Escape == EscapeGlobal:
		return Directive{Kind: DirectiveRegion, RegionTarget: "global"}

	default:
		return Directive{Kind: DirectiveScratch}
	}
}
