package invocation

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		strategy  Strategy
		exe       string
		path      string
		wantArgv  []string
		wantStdin string
	}{
		{
			name:     "single file",
			strategy: SingleFilePath{},
			exe:      "z3",
			path:     "/tmp/x/proof_input.smt2",
			wantArgv: []string{"z3", "/tmp/x/proof_input.smt2"},
		},
		{
			name:     "flagged file",
			strategy: FlaggedFilePath{Flags: []string{"-batch"}},
			exe:      "pvs",
			path:     "spec.pvs",
			wantArgv: []string{"pvs", "-batch", "spec.pvs"},
		},
		{
			name:     "isabelle session build",
			strategy: DirectoryBuild{Subcommand: "build", DirFlag: "-d", Flags: []string{"-a"}},
			exe:      "isabelle",
			path:     "/tmp/sess/A.thy",
			wantArgv: []string{"isabelle", "build", "-d", "/tmp/sess", "-a"},
		},
		{
			name:     "directory build without parent",
			strategy: DirectoryBuild{Subcommand: "build", DirFlag: "-d", Flags: []string{"-a"}},
			exe:      "isabelle",
			path:     "A.thy",
			wantArgv: []string{"isabelle", "build", "-d", ".", "-a"},
		},
		{
			name:      "stdin pipe",
			strategy:  StdinPipe{},
			exe:       "hol_light",
			path:      "/tmp/p/proof.ml",
			wantArgv:  []string{"hol_light"},
			wantStdin: "/tmp/p/proof.ml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.strategy.Build(tt.exe, tt.path)
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if got := inv.Argv(); !reflect.DeepEqual(got, tt.wantArgv) {
				t.Errorf("Argv() = %q, want %q", got, tt.wantArgv)
			}
			if inv.StdinPath != tt.wantStdin {
				t.Errorf("StdinPath = %q, want %q", inv.StdinPath, tt.wantStdin)
			}
		})
	}
}

func TestBuild_RejectsEmptyInputs(t *testing.T) {
	strategies := []Strategy{
		SingleFilePath{},
		FlaggedFilePath{Flags: []string{"-batch"}},
		DirectoryBuild{Subcommand: "build"},
		StdinPipe{},
	}

	for _, s := range strategies {
		if _, err := s.Build("", "a.v"); !errors.Is(err, ErrInvalidInvocation) {
			t.Errorf("%s: empty executable error = %v", s.Name(), err)
		}
		if _, err := s.Build("coqc", ""); !errors.Is(err, ErrInvalidInvocation) {
			t.Errorf("%s: empty path error = %v", s.Name(), err)
		}
	}
}

func TestBuild_DoesNotShareFlagSlices(t *testing.T) {
	s := FlaggedFilePath{Flags: []string{"-batch"}}
	a, _ := s.Build("pvs", "a.pvs")
	a.Args[0] = "-mutated"

	b, _ := s.Build("pvs", "b.pvs")
	if b.Args[0] != "-batch" {
		t.Errorf("flags were aliased: %q", b.Args)
	}
}
