package cortex

import (
	"fmt"
	"sync"

	"github.com/kittclouds/cortexpool/internal/store"
	"github.com/kittclouds/cortexpool/pkg/normalize"
)

// closedPronouns is the only set of strings resolveCoReference ever
// answers for; anything else returns no binding.
var closedPronouns = map[string]bool{
	"he": true, "she": true, "it": true, "they": true,
	"him": true, "her": true, "them": true,
	"this": true, "that": true,
	"the project": true, "the file": true,
}

// coReferenceTracker holds the per-instance cache of recent pronoun
// bindings, backed by the persisted co_references table for recovery
// across engine restarts.
type coReferenceTracker struct {
	store  store.Storer
	cfg    Config
	mu     sync.Mutex
	cache  map[string]store.CoReference
}

func newCoReferenceTracker(s store.Storer, cfg Config) *coReferenceTracker {
	return &coReferenceTracker{store: s, cfg: cfg, cache: map[string]store.CoReference{}}
}

// addCoReference upserts a binding keyed on the pronoun's normalized
// form.
func (c *coReferenceTracker) addCoReference(nowMs int64, pronoun string, entityID int64, context string) error {
	key := normalize.Normalize(pronoun)
	binding := store.CoReference{Pronoun: key, EntityID: entityID, Context: context, LastSeen: nowMs}

	if err := c.store.UpsertCoReference(&binding); err != nil {
		return fmt.Errorf("cortex: add co-reference: %w", err)
	}

	c.mu.Lock()
	c.cache[key] = binding
	c.mu.Unlock()
	return nil
}

// resolveCoReference returns the entity bound to pronoun, if pronoun
// is in the closed set and a binding was seen within the configured
// window: first checking the in-memory cache, then the persisted
// table, then falling back to resolving each entity mentioned in
// currentContext and binding the pronoun to the first hit.
func (c *coReferenceTracker) resolveCoReference(r *resolver, nowMs int64, pronoun string, currentContext []string) (*Entity, error) {
	key := normalize.Normalize(pronoun)
	if !closedPronouns[key] {
		return nil, nil
	}

	windowStart := nowMs - c.cfg.CoReferenceWindow.Milliseconds()

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok && cached.LastSeen >= windowStart {
		return c.store.GetEntity(cached.EntityID)
	}

	persisted, err := c.store.GetCoReference(key)
	if err != nil {
		return nil, fmt.Errorf("cortex: resolve co-reference lookup: %w", err)
	}
	if persisted != nil && persisted.LastSeen >= windowStart {
		c.mu.Lock()
		c.cache[key] = *persisted
		c.mu.Unlock()
		return c.store.GetEntity(persisted.EntityID)
	}

	for _, mention := range currentContext {
		entity, err := r.resolveEntity(c.cfg, mention)
		if err != nil {
			return nil, fmt.Errorf("cortex: resolve co-reference context: %w", err)
		}
		if entity != nil {
			if err := c.addCoReference(nowMs, pronoun, entity.ID, mention); err != nil {
				return nil, err
			}
			return entity, nil
		}
	}
	return nil, nil
}
