package cortex

import "github.com/kittclouds/cortexpool/internal/store"

// Tier and EntityType are the engine's closed sum types; they are
// aliased from the store package so the persistence boundary remains
// the only place a tier or entity type is stringified.
type Tier = store.Tier
type EntityType = store.EntityType

const (
	TierEpisodic   = store.TierEpisodic
	TierSemantic   = store.TierSemantic
	TierStructural = store.TierStructural
)

const (
	EntityPerson     = store.EntityPerson
	EntityProject    = store.EntityProject
	EntityConcept    = store.EntityConcept
	EntityTool       = store.EntityTool
	EntityPreference = store.EntityPreference
	EntityWebsite    = store.EntityWebsite
	EntityOther      = store.EntityOther
)

// Entity, Fact and the other row types are re-exported so callers of
// this package never need to import internal/store directly.
type (
	Entity                 = store.Entity
	Fact                   = store.Fact
	PoolEntry              = store.PoolEntry
	Topic                  = store.Topic
	Contradiction          = store.Contradiction
	CoReference            = store.CoReference
	ActivationHistoryEntry = store.ActivationHistoryEntry
)

// ScoredFact is a Fact hydrated with its subject/object entities and
// the relevance score computed for the current retrieval.
type ScoredFact struct {
	Fact    *Fact
	Subject *Entity
	Object  *Entity
	Score   float64
}

// ReflectionResult summarizes one reflect() pass.
type ReflectionResult struct {
	Contradictions int
	Entities       int
	Compressed     int
}
