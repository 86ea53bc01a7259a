package engine

import (
	"venuepilot/config"
	"venuepilot/models"
)

// Policy is the explicit configuration object the engine is constructed
// with. The engine never reads ambient global config, so tests can vary
// policy per run.
type Policy struct {
	// HILRequired forces every AI-authored outbound turn through manager
	// approval. There is no code path that sends an AI draft directly while
	// this is set.
	HILRequired bool

	// DetectionMinConfidence demotes router results below this confidence
	// to ambiguous.
	DetectionMinConfidence float64

	// ProviderMaxRetries bounds retries of idempotent provider calls
	// (detect/extract/polish). Sends are never retried by the engine.
	ProviderMaxRetries int

	// DepositPercent applied when an offer requires a deposit.
	DepositPercent float64

	// Comparator breaks soft-conflict ties until a manager decides.
	Comparator ClaimComparator
}

// ClaimComparator reports whether claim a is preferred over claim b in a
// soft conflict. Replaceable so fairness policies can change without
// touching the state machine.
type ClaimComparator func(a, b models.RoomClaim) bool

// PreferEarlierClaim is the default tie-break: first claim wins until a
// human overrides it.
func PreferEarlierClaim(a, b models.RoomClaim) bool {
	return a.CreatedAt.Before(b.CreatedAt)
}

// DefaultPolicy returns conservative defaults.
func DefaultPolicy() Policy {
	return Policy{
		HILRequired:            true,
		DetectionMinConfidence: 0.65,
		ProviderMaxRetries:     2,
		DepositPercent:         20,
		Comparator:             PreferEarlierClaim,
	}
}

// PolicyFromConfig copies the engine knobs out of the loaded app config.
func PolicyFromConfig(cfg config.Config) Policy {
	p := DefaultPolicy()
	p.HILRequired = cfg.HILRequired
	if cfg.DetectionMinConfidence > 0 {
		p.DetectionMinConfidence = cfg.DetectionMinConfidence
	}
	if cfg.ProviderMaxRetries >= 0 {
		p.ProviderMaxRetries = cfg.ProviderMaxRetries
	}
	if cfg.DepositDefaultPercent > 0 {
		p.DepositPercent = cfg.DepositDefaultPercent
	}
	return p
}
