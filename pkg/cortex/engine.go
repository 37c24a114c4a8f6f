package cortex

import (
	"context"
	"fmt"

	"github.com/kittclouds/cortexpool/internal/store"
	"github.com/kittclouds/cortexpool/pkg/normalize"
)

// Engine is one instance of the CortexPool memory engine. All mutating
// operations assume exclusive access to the backing store; concurrent
// callers sharing an Engine must serialize externally. The activation
// map, history ring, and co-reference cache are per-instance fields:
// two engines over distinct datafiles are fully isolated.
type Engine struct {
	store    store.Storer
	cfg      Config
	resolver *resolver
	activation *activationEngine
	coref    *coReferenceTracker
	vector   VectorBackend

	currentTopics []string

	// onPhaseError, if set, is invoked whenever a reflect() phase
	// fails; the failure is otherwise swallowed so later phases run.
	onPhaseError func(phase string, err error)
}

// NewEngine constructs an Engine over an already-open persistence
// backend. vector may be nil, in which case hybrid retrieval is
// disabled and Retrieve always falls back to graph-only scoring.
func NewEngine(s store.Storer, cfg Config, vector VectorBackend) *Engine {
	return &Engine{
		store:      s,
		cfg:        cfg,
		resolver:   newResolver(s),
		activation: newActivationEngine(s),
		coref:      newCoReferenceTracker(s, cfg),
		vector:     vector,
	}
}

// OnPhaseError installs a callback invoked when a reflect() phase
// fails; useful for surfacing maintenance failures to a logger
// without aborting the reflection pass itself.
func (e *Engine) OnPhaseError(fn func(phase string, err error)) {
	e.onPhaseError = fn
}

// AddEntity resolves an existing entity by canonical name (blending
// confidence and accumulating a novel alias) or creates a new one.
// Type is never overwritten on re-observation.
func (e *Engine) AddEntity(nowMs int64, name string, entityType EntityType, confidence float64) (int64, error) {
	return e.resolver.addEntity(e.cfg, nowMs, name, entityType, confidence)
}

// ResolveEntity tries exact canonicalName match, then alias substring
// match, then fuzzy match at the configured threshold.
func (e *Engine) ResolveEntity(q string) (*Entity, error) {
	return e.resolver.resolveEntity(e.cfg, q)
}

// FindFuzzyMatches scans all entities for a similarity at or above
// threshold against canonicalName or any alias.
func (e *Engine) FindFuzzyMatches(q string, threshold float64) ([]FuzzyMatch, error) {
	return e.resolver.findFuzzyMatches(normalize.Normalize(q), threshold)
}

// SuggestEntityMerges returns candidate entity pairs whose name
// similarity is at least threshold.
func (e *Engine) SuggestEntityMerges(threshold float64) ([]MergeSuggestion, error) {
	return e.resolver.suggestEntityMerges(threshold)
}

// AddFact resolves or creates the subject/object entities, derives
// importance/TTL from the tier, and persists a new fact.
func (e *Engine) AddFact(nowMs int64, in AddFactInput) (int64, error) {
	return e.addFact(nowMs, in)
}

// UseFact bumps a fact's importance (capped at 1.0) and refreshes its
// usage metadata.
func (e *Engine) UseFact(nowMs int64, id int64) error {
	return e.useFact(nowMs, id)
}

// BulkAdd sequentially applies AddFact to every item.
func (e *Engine) BulkAdd(nowMs int64, items []AddFactInput) ([]int64, error) {
	return e.bulkAdd(nowMs, items)
}

// Retrieve runs the retrieval pipeline for the given topics and
// records them as the engine's current topics for subsequent pool
// refreshes during reflection.
func (e *Engine) Retrieve(ctx context.Context, nowMs int64, topics []string, opts RetrieveOptions) ([]ScoredFact, error) {
	result, err := e.retrieve(ctx, nowMs, topics, opts)
	if err != nil {
		return nil, err
	}
	e.currentTopics = topics
	return result, nil
}

// RetrieveContext is a convenience wrapper over Retrieve using the
// engine's default pool size with vector hybridization enabled
// whenever a vector backend is configured.
func (e *Engine) RetrieveContext(ctx context.Context, nowMs int64, topics []string) ([]ScoredFact, error) {
	return e.Retrieve(ctx, nowMs, topics, RetrieveOptions{
		PoolSize:   e.cfg.PoolSize,
		UseVectors: e.vector != nil,
	})
}

// Reflect runs the maintenance pipeline: time decay, contradiction
// detection, duplicate-entity consolidation, memory compression, pool
// refresh, and a reflection-log append.
func (e *Engine) Reflect(ctx context.Context, nowMs int64) (ReflectionResult, error) {
	return e.reflect(ctx, nowMs)
}

// CleanupExpiredEpisodic deletes every episodic fact whose TTL has
// elapsed. It is never invoked by Reflect and must be scheduled
// independently by the caller.
func (e *Engine) CleanupExpiredEpisodic(nowMs int64) (int, error) {
	return e.cleanupExpiredEpisodic(nowMs)
}

// AddCoReference upserts a pronoun binding.
func (e *Engine) AddCoReference(nowMs int64, pronoun string, entityID int64, context string) error {
	return e.coref.addCoReference(nowMs, pronoun, entityID, context)
}

// ResolveCoReference resolves a pronoun against recent bindings or,
// failing that, the supplied context.
func (e *Engine) ResolveCoReference(nowMs int64, pronoun string, currentContext []string) (*Entity, error) {
	return e.coref.resolveCoReference(e.resolver, nowMs, pronoun, currentContext)
}

// GetActivationHistory filters the in-memory activation history ring
// for one entity.
func (e *Engine) GetActivationHistory(entityID int64, since int64) []ActivationHistoryEntry {
	return e.activation.getActivationHistory(entityID, since)
}

// Export serializes the full persisted state to JSON.
func (e *Engine) Export() ([]byte, error) {
	b, err := e.store.Export()
	if err != nil {
		return nil, fmt.Errorf("cortex: export: %w", err)
	}
	return b, nil
}

// Import restores persisted state from a JSON export, replacing the
// stored entities, facts, pool, topics, co-references and activation
// history. Recorded contradictions are cleared; the reflection log is
// kept.
func (e *Engine) Import(data []byte) error {
	if err := e.store.Import(data); err != nil {
		return fmt.Errorf("cortex: import: %w", err)
	}
	e.resolver.invalidateAliasIndex()
	return nil
}

// Close releases the underlying persistence backend.
func (e *Engine) Close() error {
	return e.store.Close()
}
