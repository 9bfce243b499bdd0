package models

// Tier classifies how complete a prover's backend integration is.
type Tier int

const (
	// TierFull is for provers with full backend support and first-class invocation rules.
	TierFull Tier = 1
	// TierSupported is for provers with full support but a smaller user base.
	TierSupported Tier = 2
	// TierStub is for provers with placeholder support only.
	TierStub Tier = 3
)

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	switch t {
	case TierFull, TierSupported, TierStub:
		return true
	default:
		return false
	}
}

// String returns the tier label used in listings.
func (t Tier) String() string {
	switch t {
	case TierFull:
		return "tier1"
	case TierSupported:
		return "tier2"
	case TierStub:
		return "tier3"
	default:
		return "tier?"
	}
}
