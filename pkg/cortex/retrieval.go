package cortex

import (
	"context"
	"fmt"
	"sort"
)

// VectorBackend is the optional external embedder/vector-search
// collaborator. If an Engine is constructed without one, hybrid
// retrieval is disabled and the engine degrades silently to
// graph-only results.
type VectorBackend interface {
	// Embed produces a fixed-dimension vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// SearchByVector returns the nearest facts to the embedding of
	// queryText, each paired with its similarity score.
	SearchByVector(ctx context.Context, queryText string, limit int) ([]VectorHit, error)
}

// VectorHit is one result row from a VectorBackend search.
type VectorHit struct {
	FactID int64
	Score  float64
}

// RetrieveOptions configures one retrieve call.
type RetrieveOptions struct {
	PoolSize   int
	UseVectors bool
}

// retrieve runs the full pipeline: seed topics, spread activation,
// score every fact, materialize the top-K pool, and return the chosen
// facts hydrated with their subject/object entities and score.
func (e *Engine) retrieve(ctx context.Context, nowMs int64, topics []string, opts RetrieveOptions) ([]ScoredFact, error) {
	if len(topics) == 0 {
		return nil, ErrInvalidTopics
	}
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = e.cfg.PoolSize
	}

	if err := e.activation.setTopics(e.cfg, e.resolver, nowMs, topics); err != nil {
		return nil, fmt.Errorf("cortex: retrieve set topics: %w", err)
	}
	if err := e.activation.spread(e.cfg, nowMs); err != nil {
		return nil, fmt.Errorf("cortex: retrieve spread: %w", err)
	}

	facts, err := e.store.ListFacts()
	if err != nil {
		return nil, fmt.Errorf("cortex: retrieve list facts: %w", err)
	}

	entityCache := map[int64]*Entity{}
	getEntity := func(id int64) (*Entity, error) {
		if ent, ok := entityCache[id]; ok {
			return ent, nil
		}
		ent, err := e.store.GetEntity(id)
		if err != nil {
			return nil, err
		}
		entityCache[id] = ent
		return ent, nil
	}

	type scored struct {
		fact    *Fact
		subject *Entity
		object  *Entity
		s       float64
	}
	graphScored := make([]scored, 0, len(facts))
	for _, f := range facts {
		subject, err := getEntity(f.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("cortex: retrieve hydrate subject: %w", err)
		}
		var object *Entity
		if f.ObjectID != nil {
			object, err = getEntity(*f.ObjectID)
			if err != nil {
				return nil, fmt.Errorf("cortex: retrieve hydrate object: %w", err)
			}
		}
		s := score(f, subject, topics, e.activation.level(f.SubjectID), nowMs)
		graphScored = append(graphScored, scored{fact: f, subject: subject, object: object, s: s})
	}

	vectorHits := map[int64]float64{}
	usedVectors := false
	if opts.UseVectors && e.vector != nil {
		hits, err := e.vector.SearchByVector(ctx, joinTopics(topics), poolSize)
		if err == nil {
			usedVectors = true
			for _, h := range hits {
				vectorHits[h.FactID] = h.Score
			}
		}
		// any vector backend error falls back silently to graph-only
	}

	var combined []ScoredFact
	if usedVectors {
		seen := map[int64]bool{}
		for _, g := range graphScored {
			final := 0.7 * g.s
			if v, ok := vectorHits[g.fact.ID]; ok {
				final += 0.3 * v
				seen[g.fact.ID] = true
			}
			combined = append(combined, ScoredFact{Fact: g.fact, Subject: g.subject, Object: g.object, Score: final})
		}
		for factID, v := range vectorHits {
			if seen[factID] {
				continue
			}
			f, err := e.store.GetFact(factID)
			if err != nil || f == nil {
				continue
			}
			subject, _ := getEntity(f.SubjectID)
			var object *Entity
			if f.ObjectID != nil {
				object, _ = getEntity(*f.ObjectID)
			}
			combined = append(combined, ScoredFact{Fact: f, Subject: subject, Object: object, Score: 0.3 * v})
		}
	} else {
		for _, g := range graphScored {
			combined = append(combined, ScoredFact{Fact: g.fact, Subject: g.subject, Object: g.object, Score: g.s})
		}
	}

	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Score > combined[j].Score })
	if len(combined) > poolSize {
		combined = combined[:poolSize]
	}

	entries := make([]*PoolEntry, len(combined))
	for i, c := range combined {
		entries[i] = &PoolEntry{FactID: c.Fact.ID, Score: c.Score, AddedAt: nowMs}
	}
	if err := e.store.ReplacePool(entries); err != nil {
		return nil, fmt.Errorf("cortex: retrieve replace pool: %w", err)
	}

	return combined, nil
}

func joinTopics(topics []string) string {
	out := ""
	for i, t := range topics {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
