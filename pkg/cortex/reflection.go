package cortex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kittclouds/cortexpool/pkg/normalize"
)

const (
	similarFactThreshold   = 0.85
	agedFactMinDays        = 90
	agedFactMinImportance  = 0.3
	agedFactMinUseCount    = 3
	agedFactMinContentLen  = 50
	importanceDeleteFloor  = 0.1
	summaryPrefixLen       = 100
)

// reflect runs the maintenance pipeline in order: time decay,
// contradiction detection, duplicate-entity consolidation, memory
// compression, pool refresh, and a reflection-log append. No phase's
// failure aborts the ones that follow it; each is individually
// well-defined and idempotent under replay.
func (e *Engine) reflect(ctx context.Context, nowMs int64) (ReflectionResult, error) {
	var result ReflectionResult

	if err := e.reflectDecay(nowMs); err != nil {
		e.logPhaseError("decay", err)
	}

	if n, err := e.reflectContradictions(nowMs); err != nil {
		e.logPhaseError("contradictions", err)
	} else {
		result.Contradictions = n
	}

	if n, err := e.reflectConsolidateEntities(); err != nil {
		e.logPhaseError("consolidate-entities", err)
	} else {
		result.Entities = n
		if n > 0 {
			e.resolver.invalidateAliasIndex()
		}
	}

	if n, err := e.reflectCompress(nowMs); err != nil {
		e.logPhaseError("compress", err)
	} else {
		result.Compressed = n
	}

	if len(e.currentTopics) > 0 {
		if _, err := e.retrieve(ctx, nowMs, e.currentTopics, RetrieveOptions{PoolSize: e.cfg.PoolSize}); err != nil {
			e.logPhaseError("refresh-pool", err)
		}
	}

	if err := e.store.AppendReflectionLog(&ReflectionLog{
		Contradictions: result.Contradictions,
		EntitiesMerged: result.Entities,
		Compressed:     result.Compressed,
		CreatedAt:      nowMs,
	}); err != nil {
		return result, fmt.Errorf("cortex: reflect append log: %w", err)
	}

	return result, nil
}

// logPhaseError records that a reflection phase failed without
// propagating the error, so later phases still run.
func (e *Engine) logPhaseError(phase string, err error) {
	if e.onPhaseError != nil {
		e.onPhaseError(phase, err)
	}
}

// reflectDecay applies exponential time decay toward each tier's base
// importance and deletes facts that decay below the delete floor.
func (e *Engine) reflectDecay(nowMs int64) error {
	facts, err := e.store.ListFacts()
	if err != nil {
		return fmt.Errorf("decay: %w", err)
	}

	var toDelete []int64
	for _, f := range facts {
		tc := e.cfg.tierConfig(f.Tier)
		hours := hoursSince(f.LastUsed, nowMs)
		newImportance := tc.BaseImportance + (f.Importance-tc.BaseImportance)*math.Exp(-tc.DecayRate*hours)
		if newImportance < importanceDeleteFloor {
			toDelete = append(toDelete, f.ID)
			continue
		}
		f.Importance = newImportance
		if err := e.store.UpdateFact(f); err != nil {
			return fmt.Errorf("decay update %d: %w", f.ID, err)
		}
	}
	if len(toDelete) > 0 {
		if err := e.store.DeleteFacts(toDelete); err != nil {
			return fmt.Errorf("decay delete: %w", err)
		}
	}
	return nil
}

// reflectContradictions records every pair of facts sharing subject
// and predicate with differing content. Every run records every
// differing pair again; de-duplication against prior runs is an
// explicit open question left unresolved by the source design.
func (e *Engine) reflectContradictions(nowMs int64) (int, error) {
	facts, err := e.store.ListFacts()
	if err != nil {
		return 0, fmt.Errorf("contradictions: %w", err)
	}

	byKey := map[string][]*Fact{}
	for _, f := range facts {
		key := fmt.Sprintf("%d|%s", f.SubjectID, f.Predicate)
		byKey[key] = append(byKey[key], f)
	}

	count := 0
	for _, group := range byKey {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if group[i].Content == group[j].Content {
					continue
				}
				id, err := nextContradictionID(e.store)
				if err != nil {
					return count, err
				}
				if err := e.store.AddContradiction(&Contradiction{
					ID: id, Fact1ID: group[i].ID, Fact2ID: group[j].ID, DetectedAt: nowMs,
				}); err != nil {
					return count, fmt.Errorf("contradictions add: %w", err)
				}
				count++
			}
		}
	}
	return count, nil
}

func nextContradictionID(s interface {
	ListContradictions() ([]*Contradiction, error)
}) (int64, error) {
	existing, err := s.ListContradictions()
	if err != nil {
		return 0, fmt.Errorf("next contradiction id: %w", err)
	}
	var max int64
	for _, c := range existing {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1, nil
}

// reflectConsolidateEntities groups entities by canonicalName,
// keeping the first-seen entity (earliest createdAt, ties broken by
// lower id) of each group as the survivor: facts referencing the
// dropped entities are rewritten, alias sets merged and deduplicated,
// confidences averaged, and the duplicates deleted. Running this twice
// in a row is a no-op: after the first pass every canonicalName group
// has exactly one member.
func (e *Engine) reflectConsolidateEntities() (int, error) {
	entities, err := e.store.ListEntities()
	if err != nil {
		return 0, fmt.Errorf("consolidate: %w", err)
	}

	groups := map[string][]*Entity{}
	for _, ent := range entities {
		groups[ent.CanonicalName] = append(groups[ent.CanonicalName], ent)
	}

	merged := 0
	var toDelete []int64
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].CreatedAt != group[j].CreatedAt {
				return group[i].CreatedAt < group[j].CreatedAt
			}
			return group[i].ID < group[j].ID
		})
		survivor := group[0]
		dropped := group[1:]

		aliasSet := map[string]bool{}
		aliases := []string{}
		for _, a := range survivor.Aliases {
			if !aliasSet[a] {
				aliasSet[a] = true
				aliases = append(aliases, a)
			}
		}
		confidenceSum := survivor.Confidence
		for _, d := range dropped {
			for _, a := range d.Aliases {
				if !aliasSet[a] {
					aliasSet[a] = true
					aliases = append(aliases, a)
				}
			}
			confidenceSum += d.Confidence
			toDelete = append(toDelete, d.ID)
			merged++
		}
		survivor.Aliases = aliases
		survivor.Confidence = confidenceSum / float64(len(group))
		if err := e.store.UpdateEntity(survivor); err != nil {
			return merged, fmt.Errorf("consolidate update survivor: %w", err)
		}

		droppedIDs := map[int64]bool{}
		for _, d := range dropped {
			droppedIDs[d.ID] = true
		}
		if err := e.rewriteFactReferences(droppedIDs, survivor.ID); err != nil {
			return merged, err
		}
	}

	if len(toDelete) > 0 {
		if err := e.store.DeleteEntities(toDelete); err != nil {
			return merged, fmt.Errorf("consolidate delete duplicates: %w", err)
		}
	}
	return merged, nil
}

func (e *Engine) rewriteFactReferences(droppedIDs map[int64]bool, survivorID int64) error {
	facts, err := e.store.ListFacts()
	if err != nil {
		return fmt.Errorf("rewrite facts: %w", err)
	}
	for _, f := range facts {
		changed := false
		if droppedIDs[f.SubjectID] {
			f.SubjectID = survivorID
			changed = true
		}
		if f.ObjectID != nil && droppedIDs[*f.ObjectID] {
			v := survivorID
			f.ObjectID = &v
			changed = true
		}
		if changed {
			if err := e.store.UpdateFact(f); err != nil {
				return fmt.Errorf("rewrite fact %d: %w", f.ID, err)
			}
		}
	}
	return nil
}

// reflectCompress runs similar-fact merging, redundant-edge pruning,
// and aged-fact summarization in sequence, returning the total number
// of facts affected (merged, pruned, or summarized).
func (e *Engine) reflectCompress(nowMs int64) (int, error) {
	total := 0

	n, err := e.mergeSimilarFacts()
	if err != nil {
		return total, fmt.Errorf("compress merge: %w", err)
	}
	total += n

	n, err = e.pruneRedundantEdges()
	if err != nil {
		return total, fmt.Errorf("compress prune: %w", err)
	}
	total += n

	n, err = e.summarizeAgedFacts(nowMs)
	if err != nil {
		return total, fmt.Errorf("compress summarize: %w", err)
	}
	total += n

	return total, nil
}

// mergeSimilarFacts merges pairs of semantic-tier facts sharing
// (subject, predicate) whose content similarity exceeds the
// threshold, into the lower-id fact of the pair.
func (e *Engine) mergeSimilarFacts() (int, error) {
	facts, err := e.store.ListFactsByTier(TierSemantic)
	if err != nil {
		return 0, err
	}

	deleted := map[int64]bool{}
	merged := 0
	for i := 0; i < len(facts); i++ {
		if deleted[facts[i].ID] {
			continue
		}
		for j := i + 1; j < len(facts); j++ {
			if deleted[facts[j].ID] {
				continue
			}
			a, b := facts[i], facts[j]
			if a.SubjectID != b.SubjectID || a.Predicate != b.Predicate {
				continue
			}
			if normalize.Similarity(a.Content, b.Content) <= similarFactThreshold {
				continue
			}
			lo, hi := a, b
			if hi.ID < lo.ID {
				lo, hi = hi, lo
			}
			lo.Confidence = minFloat(1, lo.Confidence+hi.Confidence)
			if hi.Importance > lo.Importance {
				lo.Importance = hi.Importance
			}
			lo.UseCount += hi.UseCount
			if hi.LastUsed > lo.LastUsed {
				lo.LastUsed = hi.LastUsed
			}
			if err := e.store.UpdateFact(lo); err != nil {
				return merged, fmt.Errorf("merge update: %w", err)
			}
			if err := e.store.DeleteFacts([]int64{hi.ID}); err != nil {
				return merged, fmt.Errorf("merge delete: %w", err)
			}
			deleted[hi.ID] = true
			merged++
		}
	}
	return merged, nil
}

// pruneRedundantEdges keeps, for every (subject, predicate, object)
// triple with a non-null object appearing more than once, the row
// with max importance (ties broken by max useCount), deleting the
// rest.
func (e *Engine) pruneRedundantEdges() (int, error) {
	facts, err := e.store.ListFacts()
	if err != nil {
		return 0, err
	}

	groups := map[string][]*Fact{}
	for _, f := range facts {
		if f.ObjectID == nil {
			continue
		}
		key := fmt.Sprintf("%d|%s|%d", f.SubjectID, f.Predicate, *f.ObjectID)
		groups[key] = append(groups[key], f)
	}

	var toDelete []int64
	pruned := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].Importance != group[j].Importance {
				return group[i].Importance > group[j].Importance
			}
			return group[i].UseCount > group[j].UseCount
		})
		for _, f := range group[1:] {
			toDelete = append(toDelete, f.ID)
			pruned++
		}
	}
	if len(toDelete) > 0 {
		if err := e.store.DeleteFacts(toDelete); err != nil {
			return pruned, fmt.Errorf("prune delete: %w", err)
		}
	}
	return pruned, nil
}

// summarizeAgedFacts replaces the content of old, important,
// well-used semantic facts with a truncated summary.
func (e *Engine) summarizeAgedFacts(nowMs int64) (int, error) {
	facts, err := e.store.ListFactsByTier(TierSemantic)
	if err != nil {
		return 0, err
	}

	ninetyDaysMs := int64(agedFactMinDays) * 24 * 3600_000
	summarized := 0
	for _, f := range facts {
		age := nowMs - f.CreatedAt
		if age < ninetyDaysMs {
			continue
		}
		if f.Importance <= agedFactMinImportance || f.UseCount <= agedFactMinUseCount {
			continue
		}
		if len(f.Content) < agedFactMinContentLen {
			continue
		}
		prefix := f.Content
		if len(prefix) > summaryPrefixLen {
			prefix = prefix[:summaryPrefixLen]
		}
		f.Content = fmt.Sprintf("[Summarized: %s...]", prefix)
		if err := e.store.UpdateFact(f); err != nil {
			return summarized, fmt.Errorf("summarize update: %w", err)
		}
		summarized++
	}
	return summarized, nil
}

// cleanupExpiredEpisodic deletes every episodic fact whose TTL has
// elapsed. It is never called by reflect(); episodic TTL eviction is
// scheduled independently by the caller, per the source design.
func (e *Engine) cleanupExpiredEpisodic(nowMs int64) (int, error) {
	facts, err := e.store.ListFactsByTier(TierEpisodic)
	if err != nil {
		return 0, fmt.Errorf("cortex: cleanup expired episodic: %w", err)
	}

	var expired []int64
	for _, f := range facts {
		if f.TTL == nil {
			continue
		}
		if f.CreatedAt+*f.TTL < nowMs {
			expired = append(expired, f.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := e.store.DeleteFacts(expired); err != nil {
		return 0, fmt.Errorf("cortex: cleanup expired episodic delete: %w", err)
	}
	return len(expired), nil
}
