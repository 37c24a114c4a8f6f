package cortex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coregx/ahocorasick"

	"github.com/kittclouds/cortexpool/internal/store"
	"github.com/kittclouds/cortexpool/pkg/normalize"
)

// FuzzyMatch is one candidate returned by findFuzzyMatches.
type FuzzyMatch struct {
	Entity     *Entity
	Similarity float64
}

// MergeSuggestion is one candidate pair returned by suggestEntityMerges.
type MergeSuggestion struct {
	Entity1    *Entity
	Entity2    *Entity
	Similarity float64
	Reason     string
}

// resolver resolves entity names against the store, maintaining an
// Aho-Corasick index over every entity's alias set so the
// query-contains-alias check during resolution runs in time
// proportional to the query length. The reverse check (an alias
// containing the query) scans every alias.
type resolver struct {
	store store.Storer

	mu             sync.Mutex
	ac             *ahocorasick.Automaton
	patterns       []string
	patternEntity  []int64 // patterns[i] belongs to entity patternEntity[i]
	aliasIndexDone bool
}

func newResolver(s store.Storer) *resolver {
	return &resolver{store: s}
}

// rebuildAliasIndex recompiles the Aho-Corasick automaton from every
// entity's current alias set. Called lazily and after any alias
// mutation; acceptable at the target scale of thousands of entities,
// per the component design's own cost note for fuzzy matching.
func (r *resolver) rebuildAliasIndex() error {
	entities, err := r.store.ListEntities()
	if err != nil {
		return fmt.Errorf("cortex: rebuild alias index: %w", err)
	}

	var patterns []string
	var owners []int64
	for _, e := range entities {
		for _, alias := range e.Aliases {
			key := normalize.Normalize(alias)
			if key == "" {
				continue
			}
			patterns = append(patterns, key)
			owners = append(owners, e.ID)
		}
	}

	if len(patterns) == 0 {
		r.mu.Lock()
		r.ac = nil
		r.patterns = nil
		r.patternEntity = nil
		r.aliasIndexDone = true
		r.mu.Unlock()
		return nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return fmt.Errorf("cortex: build alias automaton: %w", err)
	}

	r.mu.Lock()
	r.ac = automaton
	r.patterns = patterns
	r.patternEntity = owners
	r.aliasIndexDone = true
	r.mu.Unlock()
	return nil
}

func (r *resolver) invalidateAliasIndex() {
	r.mu.Lock()
	r.aliasIndexDone = false
	r.mu.Unlock()
}

func (r *resolver) ensureAliasIndex() error {
	r.mu.Lock()
	done := r.aliasIndexDone
	r.mu.Unlock()
	if done {
		return nil
	}
	return r.rebuildAliasIndex()
}

// aliasSubstringMatch returns the entity whose alias participates in a
// substring relationship with the normalized query, in either
// direction: the query contains a known alias, or a known alias
// contains the query.
func (r *resolver) aliasSubstringMatch(normalizedQuery string) (*Entity, error) {
	if err := r.ensureAliasIndex(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	ac := r.ac
	patterns := r.patterns
	owners := r.patternEntity
	r.mu.Unlock()

	if ac != nil {
		matches := ac.FindAllOverlapping([]byte(normalizedQuery))
		if len(matches) > 0 {
			id := owners[matches[0].PatternID]
			return r.store.GetEntity(id)
		}
	}

	// Reverse direction: an alias longer than the query that contains
	// it as a substring. Linear in the total number of aliases across
	// all entities.
	for i, pattern := range patterns {
		if len(pattern) > len(normalizedQuery) && containsSubstring(pattern, normalizedQuery) {
			return r.store.GetEntity(owners[i])
		}
	}
	return nil, nil
}

func containsSubstring(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}

// resolveEntity tries, in order: exact canonicalName match, alias
// substring match, then fuzzy match at the configured threshold,
// ties broken by higher similarity then lower id.
func (r *resolver) resolveEntity(cfg Config, q string) (*Entity, error) {
	normalized := normalize.Normalize(q)
	if normalized == "" {
		return nil, nil
	}

	exact, err := r.store.GetEntityByCanonicalName(normalized)
	if err != nil {
		return nil, fmt.Errorf("cortex: resolve entity exact: %w", err)
	}
	if exact != nil {
		return exact, nil
	}

	alias, err := r.aliasSubstringMatch(normalized)
	if err != nil {
		return nil, fmt.Errorf("cortex: resolve entity alias: %w", err)
	}
	if alias != nil {
		return alias, nil
	}

	matches, err := r.findFuzzyMatches(normalized, cfg.FuzzyMatchThreshold)
	if err != nil {
		return nil, fmt.Errorf("cortex: resolve entity fuzzy: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0].Entity, nil
}

// findFuzzyMatches scans all entities and returns those whose best
// similarity (against canonicalName or any alias) is at least
// threshold, sorted descending by similarity and then by lower id.
func (r *resolver) findFuzzyMatches(normalizedQuery string, threshold float64) ([]FuzzyMatch, error) {
	entities, err := r.store.ListEntities()
	if err != nil {
		return nil, fmt.Errorf("cortex: find fuzzy matches: %w", err)
	}

	var matches []FuzzyMatch
	for _, e := range entities {
		best := normalize.Similarity(normalizedQuery, e.CanonicalName)
		for _, alias := range e.Aliases {
			if s := normalize.Similarity(normalizedQuery, normalize.Normalize(alias)); s > best {
				best = s
			}
		}
		if best >= threshold {
			matches = append(matches, FuzzyMatch{Entity: e, Similarity: best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entity.ID < matches[j].Entity.ID
	})
	return matches, nil
}

// addEntity resolves an existing entity by canonicalName, blending
// confidence and accumulating a novel alias, or creates a new one.
// Type is never overwritten on re-observation.
func (r *resolver) addEntity(cfg Config, nowMs int64, name string, entityType EntityType, confidence float64) (int64, error) {
	canonical := normalize.Normalize(name)
	existing, err := r.store.GetEntityByCanonicalName(canonical)
	if err != nil {
		return 0, fmt.Errorf("cortex: add entity lookup: %w", err)
	}

	if existing != nil {
		novel := true
		for _, alias := range existing.Aliases {
			if alias == name {
				novel = false
				break
			}
		}
		if novel {
			existing.Aliases = append(existing.Aliases, name)
		}
		existing.Confidence = (existing.Confidence + confidence) / 2
		if err := r.store.UpdateEntity(existing); err != nil {
			return 0, fmt.Errorf("cortex: add entity update: %w", err)
		}
		if novel {
			r.invalidateAliasIndex()
		}
		return existing.ID, nil
	}

	id, err := r.store.NextEntityID()
	if err != nil {
		return 0, fmt.Errorf("cortex: add entity id: %w", err)
	}
	e := &Entity{
		ID:            id,
		Name:          name,
		CanonicalName: canonical,
		Type:          entityType,
		Aliases:       []string{name},
		Confidence:    confidence,
		CreatedAt:     nowMs,
	}
	if err := r.store.CreateEntity(e); err != nil {
		return 0, fmt.Errorf("cortex: add entity create: %w", err)
	}
	r.invalidateAliasIndex()
	return id, nil
}

// suggestEntityMerges performs the O(N^2) pairwise similarity pass
// over all entities, upgrading the reason string when the pair shares
// a relationship (one appears as subject of a fact whose predicate the
// other also has as subject).
func (r *resolver) suggestEntityMerges(threshold float64) ([]MergeSuggestion, error) {
	entities, err := r.store.ListEntities()
	if err != nil {
		return nil, fmt.Errorf("cortex: suggest merges: %w", err)
	}

	predicatesBySubject := map[int64]map[string]bool{}
	facts, err := r.store.ListFacts()
	if err != nil {
		return nil, fmt.Errorf("cortex: suggest merges facts: %w", err)
	}
	for _, f := range facts {
		set, ok := predicatesBySubject[f.SubjectID]
		if !ok {
			set = map[string]bool{}
			predicatesBySubject[f.SubjectID] = set
		}
		set[f.Predicate] = true
	}

	var suggestions []MergeSuggestion
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			e1, e2 := entities[i], entities[j]
			sim := normalize.Similarity(e1.CanonicalName, e2.CanonicalName)
			if sim < threshold {
				continue
			}
			reason := "High name similarity"
			var shared []string
			for pred := range predicatesBySubject[e1.ID] {
				if predicatesBySubject[e2.ID][pred] {
					shared = append(shared, pred)
				}
			}
			if len(shared) > 0 {
				sort.Strings(shared)
				reason = "Shared relationships: " + joinComma(shared)
			}
			suggestions = append(suggestions, MergeSuggestion{
				Entity1: e1, Entity2: e2, Similarity: sim, Reason: reason,
			})
		}
	}
	return suggestions, nil
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
