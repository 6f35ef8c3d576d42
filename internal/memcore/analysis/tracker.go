package analysis

// Tracker is a reference implementation of the scope/variable bookkeeping
// a real escape-analysis pass performs, grounded in the runtime's own
// lifetime-tracking scope/variable model. It exists for testing the
// substrate against analysis output without a full compiler front end.
type Tracker struct {
	scopes  []*scope
	current *scope
	nextID  int
}

type scope struct {
	id       int
	parent   *scope
	children []*scope
	vars     map[string]*variable
}

type variable struct {
	name       string
	assignedIn *scope
	usedOuter  bool // read from an outer scope than assignedIn
	returned   bool
	captured   bool
	global     bool
	edges      []string // names of variables this one points to
}

// NewTracker constructs an empty tracker with one root scope.
func NewTracker() *Tracker {
	root := &scope{id: 0, vars: make(map[string]*variable)}

	return &Tracker{scopes: []*scope{root}, current: root}
}

// PushScope enters a new nested scope.
func (t *Tracker) PushScope() {
	t.nextID++
	s := &scope{id: t.nextID, parent: t.current, vars: make(map[string]*variable)}
	t.current.children = append(t.current.children, s)
	t.scopes = append(t.scopes, s)
	t.current = s
}

// PopScope leaves the current scope, returning to its parent. Popping the
// root scope is a no-op.
func (t *Tracker) PopScope() {
	if t.current.parent != nil {
		t.current = t.current.parent
	}
}

// Declare records a new variable assigned in the current scope.
func (t *Tracker) Declare(name string) {
	t.current.vars[name] = &variable{name: name, assignedIn: t.current}
}

// AddEdge records that variable `from` holds a reference to `to`, for
// shape classification.
func (t *Tracker) AddEdge(from, to string) {
	if v := t.find(from); v != nil {
		v.edges = append(v.edges, to)
	}
}

// MarkReturned records that name is returned from its assigning scope.
func (t *Tracker) MarkReturned(name string) {
	if v := t.find(name); v != nil {
		v.returned = true
	}
}

// MarkCaptured records that name is captured by a closure.
func (t *Tracker) MarkCaptured(name string) {
	if v := t.find(name); v != nil {
		v.captured = true
	}
}

// MarkGlobal records that name escapes to a global binding.
func (t *Tracker) MarkGlobal(name string) {
	if v := t.find(name); v != nil {
		v.global = true
	}
}

func (t *Tracker) find(name string) *variable {
	for s := t.current; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v
		}
	}

	return nil
}

// Escape derives the escape class §4.8 expects for name, in priority
// order global > captured > return > none (argument escape is a
// parameter-only classification this reference tracker does not model).
func (t *Tracker) Escape(name string) EscapeClass {
	v := t.find(name)
	if v == nil {
		return EscapeNone
	}

	switch {
	case v.global:
		return EscapeGlobal
	case v.captured:
		return EscapeCaptured
	case v.returned:
		return EscapeReturn
	default:
		return EscapeNone
	}
}

// Shape derives the shape classification for name by walking its edge set
// for a cycle, then for shared targets (a DAG), defaulting to a tree.
func (t *Tracker) Shape(name string) Shape {
	v := t.find(name)
	if v == nil {
		return ShapeTree
	}

	if t.hasCycle(name, make(map[string]bool)) {
		return ShapeCyclic
	}

	if t.hasSharedTarget(name) {
		return ShapeDAG
	}

	return ShapeTree
}

func (t *Tracker) hasCycle(name string, visiting map[string]bool) bool {
	if visiting[name] {
		return true
	}

	v := t.find(name)
	if v == nil {
		return false
	}

	visiting[name] = true

	for _, e := range v.edges {
		if t.hasCycle(e, visiting) {
			return true
		}
	}

	delete(visiting, name)

	return false
}

func (t *Tracker) hasSharedTarget(name string) bool {
	v := t.find(name)
	if v == nil {
		return false
	}

	seen := make(map[string]int)
	t.countTargets(v, seen, make(map[string]bool))

	for _, count := range seen {
		if count > 1 {
			return true
		}
	}

	return false
}

func (t *Tracker) countTargets(v *variable, seen map[string]int, visited map[string]bool) {
	if visited[v.name] {
		return
	}

	visited[v.name] = true

	for _, e := range v.edges {
		seen[e]++

		if child := t.find(e); child != nil {
			t.countTargets(child, seen, visited)
		}
	}
}

// Site builds the full analysis Site for name using the tracked escape
// and shape classification plus caller-supplied size/ownership
// information (which this reference tracker does not infer on its own).
func (t *Tracker) Site(id, name string, size SizeHint, ownership OwnershipMode) Site {
	return Site{
		ID:        id,
		Escape:    t.Escape(name),
		Shape:     t.Shape(name),
		Size:      size,
		Ownership: ownership,
	}
}
