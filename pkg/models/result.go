package models

import (
	"fmt"
	"strings"
)

// ProofStatus is the normalized verdict of a verification attempt.
// The zero value is StatusUnknown; Code gives the boundary status code.
type ProofStatus int

const (
	// StatusUnknown is the default for anything that cannot be classified.
	StatusUnknown ProofStatus = iota
	// StatusVerified indicates the prover accepted the proof.
	StatusVerified
	// StatusFailed indicates the prover rejected the proof.
	StatusFailed
	// StatusTimeout indicates the prover exceeded its time budget.
	StatusTimeout
	// StatusError indicates the prover could not be run.
	StatusError
)

var proofStatusNames = [...]string{
	StatusUnknown:  "unknown",
	StatusVerified: "verified",
	StatusFailed:   "failed",
	StatusTimeout:  "timeout",
	StatusError:    "error",
}

// Boundary status codes returned by Code.
const (
	CodeVerified = 0
	CodeFailed   = 1
	CodeTimeout  = 2
	CodeError    = 3
	CodeUnknown  = 4
)

// Valid returns true if the status is a known value.
func (s ProofStatus) Valid() bool {
	return s >= StatusUnknown && s <= StatusError
}

// String returns the lowercase status name.
func (s ProofStatus) String() string {
	if !s.Valid() {
		return proofStatusNames[StatusUnknown]
	}
	return proofStatusNames[s]
}

// Code returns the boundary status code: 0 verified, 1 failed, 2 timeout,
// 3 error, 4 unknown. Invalid values map to unknown.
func (s ProofStatus) Code() int {
	switch s {
	case StatusVerified:
		return CodeVerified
	case StatusFailed:
		return CodeFailed
	case StatusTimeout:
		return CodeTimeout
	case StatusError:
		return CodeError
	default:
		return CodeUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ProofStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Names are matched
// case-insensitively; unrecognised names are an error.
func (s *ProofStatus) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range proofStatusNames {
		if n == name {
			*s = ProofStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown proof status %q", string(text))
}

// ProofResult is the outcome of a single verification attempt.
type ProofResult struct {
	// Prover is the prover that produced the verdict.
	Prover ProverKind `json:"prover" yaml:"prover"`
	// Status is the normalized verdict.
	Status ProofStatus `json:"status" yaml:"status"`
	// Message is a short human-readable summary.
	Message string `json:"message" yaml:"message"`
	// ProverOutput is the raw stdout/stderr captured from the prover. It may be empty.
	ProverOutput string `json:"prover_output" yaml:"prover_output"`
	// OutputTruncated is set when the output exceeded the capture limit.
	OutputTruncated bool `json:"output_truncated,omitempty" yaml:"output_truncated,omitempty"`
	// DurationMs is the wall-clock duration of the attempt in milliseconds.
	DurationMs int64 `json:"duration_ms" yaml:"duration_ms"`
}

// Verified reports whether the prover accepted the proof.
func (r *ProofResult) Verified() bool {
	return r != nil && r.Status == StatusVerified
}

// TacticSuggestion is a proof step proposed by a tactic-suggestion backend.
type TacticSuggestion struct {
	// Tactic is the tactic text in the prover's own syntax.
	Tactic string `json:"tactic"`
	// Confidence is the backend's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Explanation optionally describes why the tactic may apply.
	Explanation string `json:"explanation,omitempty"`
}

// Valid returns true if the suggestion has a tactic and an in-range confidence.
func (t TacticSuggestion) Valid() bool {
	return strings.TrimSpace(t.Tactic) != "" && t.Confidence >= 0 && t.Confidence <= 1
}
