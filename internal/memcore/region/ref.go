package region

import "unsafe"

// Ref is a fat pointer pairing an object pointer with the region that owns
// it. Constructing a Ref retains its region; dropping one (Release) must
// release it exactly once. object is borrowed from the region and must not
// outlive it — that's the caller's obligation, the same way a raw pointer
// would be in the teacher's allocator package.
type Ref struct {
	object unsafe.Pointer
	region *Region
}

// NewRef constructs a RegionRef, retaining region. Aliasing a Ref (copying
// the struct) is permitted; each copy must still be released exactly once,
// so callers that alias should call Retain explicitly to track it.
func NewRef(object unsafe.Pointer, r *Region) Ref {
	r.RetainInternal()

	return Ref{object: object, region: r}
}

// Object returns the borrowed object pointer.
func (r Ref) Object() unsafe.Pointer { return r.object }

// Region returns the owning region.
func (r Ref) Region() *Region { return r.region }

// Retain increments the owning region's external reference count, for
// explicit aliasing of an existing Ref (e.g. storing a second copy in a
// data structure).
func (r Ref) Retain() {
	r.region.RetainInternal()
}

// Release decrements the owning region's external reference count. It must
// be called exactly once per construction or explicit Retain.
func (r Ref) Release() {
	r.region.ReleaseInternal()
}

// IsNil reports whether the ref carries no object.
func (r Ref) IsNil() bool { return r.object == nil }
