package models

import (
	"fmt"
	"strings"
)

// ProverKind identifies one of the supported theorem provers or SMT solvers.
// The ordinal is stable and is used as the prover identifier at the binary boundary.
type ProverKind int

const (
	// ProverAgda is the Agda dependently typed proof assistant.
	ProverAgda ProverKind = iota
	// ProverCoq is the Coq proof assistant.
	ProverCoq
	// ProverLean is the Lean theorem prover.
	ProverLean
	// ProverIsabelle is Isabelle, verified per session directory.
	ProverIsabelle
	// ProverZ3 is the Z3 SMT solver.
	ProverZ3
	// ProverCVC5 is the cvc5 SMT solver.
	ProverCVC5
	// ProverMetamath is the Metamath proof checker.
	ProverMetamath
	// ProverHOLLight is HOL Light, driven through its toplevel.
	ProverHOLLight
	// ProverMizar is the Mizar system.
	ProverMizar
	// ProverPVS is the PVS specification and verification system.
	ProverPVS
	// ProverACL2 is ACL2.
	ProverACL2
	// ProverHOL4 is HOL4.
	ProverHOL4

	proverKindCount = iota
)

var proverKindNames = [proverKindCount]string{
	"agda",
	"coq",
	"lean",
	"isabelle",
	"z3",
	"cvc5",
	"metamath",
	"hol_light",
	"mizar",
	"pvs",
	"acl2",
	"hol4",
}

// ProverKindCount is the number of supported provers.
const ProverKindCount = proverKindCount

// Valid returns true if the kind is one of the declared provers.
func (k ProverKind) Valid() bool {
	return k >= 0 && int(k) < proverKindCount
}

// String returns the prover identifier, e.g. "z3" or "hol_light".
func (k ProverKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("prover(%d)", int(k))
	}
	return proverKindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k ProverKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrProverNotFound, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ProverKind) UnmarshalText(text []byte) error {
	parsed, err := ParseProverKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseProverKind resolves a prover identifier. Matching ignores case and
// accepts '-' in place of '_' so "HOL-Light" and "hol_light" are equivalent.
func ParseProverKind(s string) (ProverKind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range proverKindNames {
		if n == name {
			return ProverKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrProverNotFound, s)
}

// ProverKindFromID converts a raw integer identifier into a ProverKind,
// rejecting anything outside the declared range.
func ProverKindFromID(id int) (ProverKind, error) {
	k := ProverKind(id)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: id %d out of range [0,%d)", ErrProverNotFound, id, proverKindCount)
	}
	return k, nil
}

// AllProverKinds returns every prover in declaration order.
func AllProverKinds() []ProverKind {
	kinds := make([]ProverKind, proverKindCount)
	for i := range kinds {
		kinds[i] = ProverKind(i)
	}
	return kinds
}
