// Package abi gates compatibility between a compiled module's expected
// memory-substrate ABI version and the substrate actually linked into the
// running process, using semver range constraints the same way the
// toolchain's package resolver pins dependency versions.
package abi

import (
	semver "github.com/Masterminds/semver/v3"

	"github.com/omnilisp-lang/omnilisp/internal/errors"
)

// Version is the memory substrate's own ABI version. Bump the minor
// component when adding a backward-compatible capability (a new object
// tag, a new directive kind); bump major on any breaking layout change
// (SymObj inline edge capacity, Region counter packing).
const Version = "1.0.0"

// Requirement is the ABI constraint a compiled module embeds, checked
// against Version at load time.
type Requirement struct {
	Constraint string
}

// Check verifies that Version satisfies req's constraint, returning a
// CategoryConfiguration StandardError naming both versions on mismatch.
func Check(req Requirement) error {
	current, err := semver.NewVersion(Version)
	if err != nil {
		return errors.InvalidConfiguration("abi.Version", Version)
	}

	constraint, err := semver.NewConstraint(req.Constraint)
	if err != nil {
		return errors.InvalidConfiguration("abi.Requirement.Constraint", req.Constraint)
	}

	if !constraint.Check(current) {
		return errors.InvalidConfiguration("abi", req.Constraint+" incompatible with substrate "+Version)
	}

	return nil
}

// Satisfies reports whether the given constraint string is met by the
// running substrate's Version, without constructing an error.
func Satisfies(constraintExpr string) bool {
	return Check(Requirement{Constraint: constraintExpr}) == nil
}
