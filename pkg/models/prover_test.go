package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestProverKind_String(t *testing.T) {
	tests := []struct {
		kind ProverKind
		want string
	}{
		{ProverAgda, "agda"},
		{ProverCoq, "coq"},
		{ProverLean, "lean"},
		{ProverIsabelle, "isabelle"},
		{ProverZ3, "z3"},
		{ProverCVC5, "cvc5"},
		{ProverMetamath, "metamath"},
		{ProverHOLLight, "hol_light"},
		{ProverMizar, "mizar"},
		{ProverPVS, "pvs"},
		{ProverACL2, "acl2"},
		{ProverHOL4, "hol4"},
		{ProverKind(12), "prover(12)"},
		{ProverKind(-1), "prover(-1)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("ProverKind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
			}
		})
	}
}

func TestProverKindCount(t *testing.T) {
	if ProverKindCount != 12 {
		t.Errorf("ProverKindCount = %d, want 12", ProverKindCount)
	}
	if got := len(AllProverKinds()); got != 12 {
		t.Errorf("len(AllProverKinds()) = %d, want 12", got)
	}
	for i, k := range AllProverKinds() {
		if int(k) != i {
			t.Errorf("AllProverKinds()[%d] = %d, want declaration order", i, int(k))
		}
	}
}

func TestParseProverKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ProverKind
		wantErr bool
	}{
		{"z3", ProverZ3, false},
		{"Z3", ProverZ3, false},
		{"hol_light", ProverHOLLight, false},
		{"HOL-Light", ProverHOLLight, false},
		{" isabelle ", ProverIsabelle, false},
		{"", 0, true},
		{"vampire", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProverKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrProverNotFound) {
					t.Errorf("ParseProverKind(%q) error = %v, want ErrProverNotFound", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProverKind(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseProverKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProverKindFromID(t *testing.T) {
	for id := 0; id < 12; id++ {
		k, err := ProverKindFromID(id)
		if err != nil {
			t.Errorf("ProverKindFromID(%d) unexpected error: %v", id, err)
		}
		if int(k) != id {
			t.Errorf("ProverKindFromID(%d) = %d", id, int(k))
		}
	}

	for _, id := range []int{-1, 12, 255, -1 << 31} {
		if _, err := ProverKindFromID(id); !errors.Is(err, ErrProverNotFound) {
			t.Errorf("ProverKindFromID(%d) error = %v, want ErrProverNotFound", id, err)
		}
	}
}

func TestProverKind_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		P ProverKind `json:"p"`
	}{ProverHOLLight})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"p":"hol_light"}` {
		t.Errorf("marshal = %s", data)
	}

	var out struct {
		P ProverKind `json:"p"`
	}
	if err := json.Unmarshal([]byte(`{"p":"cvc5"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.P != ProverCVC5 {
		t.Errorf("unmarshal = %v, want cvc5", out.P)
	}

	if err := json.Unmarshal([]byte(`{"p":"nope"}`), &out); err == nil {
		t.Error("expected error for unknown prover name")
	}
}
