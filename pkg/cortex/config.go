// Package cortex implements the CortexPool memory engine: entity
// resolution, fact storage, spreading activation, relevance scoring,
// retrieval, and reflection/maintenance over a graph-structured
// persistent memory.
package cortex

import "time"

// TierConfig holds the decay/importance/lifetime parameters for one
// fact tier.
type TierConfig struct {
	DecayRate      float64       // per-hour exponential decay rate
	BaseImportance float64       // importance a fact decays toward
	MaxAge         time.Duration // informational; not independently enforced
}

var defaultTierConfigs = map[Tier]TierConfig{
	TierEpisodic:   {DecayRate: 0.1, BaseImportance: 0.3, MaxAge: 24 * time.Hour},
	TierSemantic:   {DecayRate: 0.01, BaseImportance: 0.6, MaxAge: 365 * 24 * time.Hour},
	TierStructural: {DecayRate: 0.001, BaseImportance: 0.8, MaxAge: 0}, // 0 means unbounded
}

// Config configures a new Engine. The zero value is not usable; build
// one with DefaultConfig and override fields as needed.
type Config struct {
	// DSN is the SQLite data source passed to the persistence adapter,
	// e.g. ":memory:" or a file path. Ignored by NewEngine, which takes
	// a store.Storer directly; the cmd/cortexpool harness takes its
	// data source from its -dsn flag instead.
	DSN string

	// PoolSize bounds the number of facts materialized by retrieve.
	PoolSize int

	// ActivationDepth is the number of spreading layers per retrieve.
	ActivationDepth int

	// ActivationDecay is the per-layer geometric decay factor.
	ActivationDecay float64

	// TierConfigs overrides the default tier decay/importance table.
	// Any tier missing from the map falls back to the default.
	TierConfigs map[Tier]TierConfig

	// EpisodicDefaultTTL is assigned to episodic facts created without
	// an explicit TTL.
	EpisodicDefaultTTL time.Duration

	// FuzzyMatchThreshold is the minimum similarity score accepted by
	// resolveEntity's fuzzy match step.
	FuzzyMatchThreshold float64

	// MergeSuggestThreshold is the minimum similarity score for
	// suggestEntityMerges.
	MergeSuggestThreshold float64

	// CoReferenceWindow bounds how long a co-reference binding remains
	// valid without a fresh sighting.
	CoReferenceWindow time.Duration
}

// DefaultConfig returns the parameter values named explicitly in the
// engine design: pool size 15, activation depth 2 with 0.5 decay,
// fuzzy/merge threshold 0.8, 30-minute co-reference window, and the
// tier table above.
func DefaultConfig() Config {
	return Config{
		DSN:                   ":memory:",
		PoolSize:              15,
		ActivationDepth:       2,
		ActivationDecay:       0.5,
		TierConfigs:           defaultTierConfigs,
		EpisodicDefaultTTL:    7 * 24 * time.Hour,
		FuzzyMatchThreshold:   0.8,
		MergeSuggestThreshold: 0.8,
		CoReferenceWindow:     30 * time.Minute,
	}
}

func (c Config) tierConfig(t Tier) TierConfig {
	if tc, ok := c.TierConfigs[t]; ok {
		return tc
	}
	return defaultTierConfigs[t]
}
