// Package verdict maps prover-specific outcomes onto models.ProofStatus.
package verdict

import "github.com/ShayCichocki/provekit/pkg/models"

// Status tokens used on the remote wire format.
const (
	TokenVerified = "VERIFIED"
	TokenFailed   = "FAILED"
	TokenTimeout  = "TIMEOUT"
	TokenError    = "ERROR"
)

// FromString decodes a wire status token. Only the exact upper-case tokens
// are recognised; anything else, including "" and "verified", is unknown.
func FromString(token string) models.ProofStatus {
	switch token {
	case TokenVerified:
		return models.StatusVerified
	case TokenFailed:
		return models.StatusFailed
	case TokenTimeout:
		return models.StatusTimeout
	case TokenError:
		return models.StatusError
	default:
		return models.StatusUnknown
	}
}

// FromExitCode maps a prover exit status: zero verifies, anything else fails.
func FromExitCode(code int) models.ProofStatus {
	if code == 0 {
		return models.StatusVerified
	}
	return models.StatusFailed
}

// Message is the summary attached to a result with the given status.
func Message(status models.ProofStatus) string {
	switch status {
	case models.StatusVerified:
		return "Proof verified"
	case models.StatusFailed:
		return "Proof failed"
	case models.StatusTimeout:
		return "Proof timed out"
	case models.StatusError:
		return "Prover execution failed"
	default:
		return "Verification result unknown"
	}
}
