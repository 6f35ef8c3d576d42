package abi

import "testing"

func TestCheckAcceptsCompatibleConstraint(t *testing.T) {
	if err := Check(Requirement{Constraint: "^1.0.0"}); err != nil {
		t.Fatalf("expected ^1.0.0 to satisfy substrate version %s: %v", Version, err)
	}
}

func TestCheckRejectsIncompatibleConstraint(t *testing.T) {
	if err := Check(Requirement{Constraint: ">=2.0.0"}); err == nil {
		t.Fatal("expected >=2.0.0 to be rejected against substrate version 1.0.0")
	}
}

func TestCheckRejectsMalformedConstraint(t *testing.T) {
	if err := Check(Requirement{Constraint: "not-a-constraint"}); err == nil {
		t.Fatal("expected malformed constraint to be rejected")
	}
}

func TestSatisfiesIsConsistentWithCheck(t *testing.T) {
	if !Satisfies("^1.0.0") {
		t.Fatal("expected Satisfies to agree with Check for a compatible constraint")
	}

	if Satisfies(">=2.0.0") {
		t.Fatal("expected Satisfies to agree with Check for an incompatible constraint")
	}
}
