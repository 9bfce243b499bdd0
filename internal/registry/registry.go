// Package registry is the static catalog of supported provers: tier,
// display name, executable, file extensions and invocation strategy.
// Everything here is compiled-in data; lookups never allocate shared state.
package registry

import (
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/provekit/internal/invocation"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// Prover is one row of the catalog.
type Prover struct {
	Kind        models.ProverKind
	Tier        models.Tier
	DisplayName string
	Executable  string
	// Extensions are tried in order; the first one names scratch files.
	Extensions []string
	Invocation invocation.Strategy
}

// table is indexed by ProverKind. Order matters for FromExtension:
// the first prover declaring an extension owns it.
var table = [models.ProverKindCount]Prover{
	models.ProverAgda: {
		Kind: models.ProverAgda, Tier: models.TierFull,
		DisplayName: "Agda", Executable: "agda",
		Extensions: []string{".agda", ".lagda", ".lagda.md"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverCoq: {
		Kind: models.ProverCoq, Tier: models.TierFull,
		DisplayName: "Coq", Executable: "coqc",
		Extensions: []string{".v"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverLean: {
		Kind: models.ProverLean, Tier: models.TierFull,
		DisplayName: "Lean", Executable: "lean",
		Extensions: []string{".lean"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverIsabelle: {
		Kind: models.ProverIsabelle, Tier: models.TierFull,
		DisplayName: "Isabelle", Executable: "isabelle",
		Extensions: []string{".thy"},
		Invocation: invocation.DirectoryBuild{Subcommand: "build", DirFlag: "-d", Flags: []string{"-a"}},
	},
	models.ProverZ3: {
		Kind: models.ProverZ3, Tier: models.TierFull,
		DisplayName: "Z3", Executable: "z3",
		Extensions: []string{".smt2", ".z3"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverCVC5: {
		Kind: models.ProverCVC5, Tier: models.TierFull,
		DisplayName: "CVC5", Executable: "cvc5",
		Extensions: []string{".smt2", ".cvc5"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverMetamath: {
		Kind: models.ProverMetamath, Tier: models.TierSupported,
		DisplayName: "Metamath", Executable: "metamath",
		Extensions: []string{".mm"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverHOLLight: {
		Kind: models.ProverHOLLight, Tier: models.TierSupported,
		DisplayName: "HOL Light", Executable: "hol_light",
		Extensions: []string{".ml"},
		Invocation: invocation.StdinPipe{},
	},
	models.ProverMizar: {
		Kind: models.ProverMizar, Tier: models.TierSupported,
		DisplayName: "Mizar", Executable: "mizf",
		Extensions: []string{".miz"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverPVS: {
		Kind: models.ProverPVS, Tier: models.TierStub,
		DisplayName: "PVS", Executable: "pvs",
		Extensions: []string{".pvs"},
		Invocation: invocation.FlaggedFilePath{Flags: []string{"-batch"}},
	},
	models.ProverACL2: {
		Kind: models.ProverACL2, Tier: models.TierStub,
		DisplayName: "ACL2", Executable: "acl2",
		Extensions: []string{".lisp", ".acl2"},
		Invocation: invocation.SingleFilePath{},
	},
	models.ProverHOL4: {
		Kind: models.ProverHOL4, Tier: models.TierStub,
		DisplayName: "HOL4", Executable: "hol",
		Extensions: []string{".sml"},
		Invocation: invocation.SingleFilePath{},
	},
}

// Count returns the number of registered provers.
func Count() int {
	return len(table)
}

// Lookup returns the catalog row for kind.
func Lookup(kind models.ProverKind) (Prover, bool) {
	if !kind.Valid() {
		return Prover{}, false
	}
	p := table[kind]
	p.Extensions = append([]string(nil), p.Extensions...)
	return p, true
}

// All returns every row in declaration order.
func All() []Prover {
	out := make([]Prover, 0, len(table))
	for _, k := range models.AllProverKinds() {
		p, _ := Lookup(k)
		out = append(out, p)
	}
	return out
}

// Tier returns the tier of kind, or 0 for an undeclared kind.
func Tier(kind models.ProverKind) models.Tier {
	if !kind.Valid() {
		return 0
	}
	return table[kind].Tier
}

// DisplayName returns the human-readable prover name.
func DisplayName(kind models.ProverKind) string {
	if !kind.Valid() {
		return ""
	}
	return table[kind].DisplayName
}

// Executable returns the default executable name for kind.
func Executable(kind models.ProverKind) string {
	if !kind.Valid() {
		return ""
	}
	return table[kind].Executable
}

// FileExtensions returns a copy of kind's extensions in declaration order.
func FileExtensions(kind models.ProverKind) []string {
	if !kind.Valid() {
		return nil
	}
	return append([]string(nil), table[kind].Extensions...)
}

// FromExtension returns the first prover, in declaration order, that claims
// ext. Matching is exact and case-sensitive; ext includes the leading dot and
// multi-part extensions such as ".lagda.md" match only as a whole.
func FromExtension(ext string) (models.ProverKind, bool) {
	for i := range table {
		for _, e := range table[i].Extensions {
			if e == ext {
				return table[i].Kind, true
			}
		}
	}
	return 0, false
}

// FromPath detects the prover from a file name. Longer multi-dot suffixes
// are preferred, so "notes.lagda.md" resolves through ".lagda.md".
func FromPath(path string) (models.ProverKind, bool) {
	base := filepath.Base(path)
	for i := strings.IndexByte(base, '.'); i >= 0 && i < len(base); {
		if i > 0 {
			if kind, ok := FromExtension(base[i:]); ok {
				return kind, true
			}
		}
		next := strings.IndexByte(base[i+1:], '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return 0, false
}
