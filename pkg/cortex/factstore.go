package cortex

import "fmt"

// AddFactInput names the parameters accepted by addFact. Tier is a
// pointer because TierEpisodic is the zero value of Tier and must
// stay distinguishable from "unset"; nil means semantic. Confidence
// defaults to 0.7 when left zero-valued; callers wanting an explicit
// zero confidence should not rely on this default.
type AddFactInput struct {
	Subject    string
	Predicate  string
	Object     string // optional; empty means a unary fact
	Content    string
	Tier       *Tier
	Confidence float64
	Source     string
	TTL        *int64 // milliseconds; nil means tier-derived default
}

// addFact resolves or creates the subject (and object, if present)
// entity, derives importance/TTL from the tier, and persists the fact.
func (e *Engine) addFact(nowMs int64, in AddFactInput) (int64, error) {
	if in.Subject == "" || in.Predicate == "" || in.Content == "" {
		return 0, ErrInvalidFact
	}
	tier := TierSemantic
	if in.Tier != nil {
		tier = *in.Tier
	}
	confidence := in.Confidence
	if confidence == 0 {
		confidence = 0.7
	}
	source := in.Source
	if source == "" {
		source = "conversation"
	}

	subjectID, err := e.resolver.addEntity(e.cfg, nowMs, in.Subject, inferType(in.Predicate), confidence)
	if err != nil {
		return 0, fmt.Errorf("cortex: add fact resolve subject: %w", err)
	}

	var objectID *int64
	if in.Object != "" {
		oid, err := e.resolver.addEntity(e.cfg, nowMs, in.Object, EntityOther, confidence)
		if err != nil {
			return 0, fmt.Errorf("cortex: add fact resolve object: %w", err)
		}
		objectID = &oid
	}

	tierCfg := e.cfg.tierConfig(tier)
	ttl := in.TTL
	if tier == TierEpisodic && ttl == nil {
		v := e.cfg.EpisodicDefaultTTL.Milliseconds()
		ttl = &v
	}

	id, err := e.store.NextFactID()
	if err != nil {
		return 0, fmt.Errorf("cortex: add fact id: %w", err)
	}

	fact := &Fact{
		ID:         id,
		SubjectID:  subjectID,
		Predicate:  in.Predicate,
		ObjectID:   objectID,
		Content:    in.Content,
		Tier:       tier,
		Importance: tierCfg.BaseImportance,
		Confidence: confidence,
		Source:     source,
		LastUsed:   nowMs,
		UseCount:   0,
		CreatedAt:  nowMs,
		TTL:        ttl,
	}
	if err := e.store.CreateFact(fact); err != nil {
		return 0, fmt.Errorf("cortex: add fact create: %w", err)
	}
	return id, nil
}

// useFact bumps a fact's importance (capped at 1.0), refreshes
// lastUsed, and increments useCount.
func (e *Engine) useFact(nowMs int64, id int64) error {
	fact, err := e.store.GetFact(id)
	if err != nil {
		return fmt.Errorf("cortex: use fact get: %w", err)
	}
	if fact == nil {
		return nil
	}
	fact.Importance = minFloat(1.0, fact.Importance+0.1)
	fact.LastUsed = nowMs
	fact.UseCount++
	if err := e.store.UpdateFact(fact); err != nil {
		return fmt.Errorf("cortex: use fact update: %w", err)
	}
	return nil
}

// bulkAdd sequentially applies addFact to every item. No atomicity is
// required across items: each insertion is independently durable, and
// a failure partway through still leaves earlier facts committed.
func (e *Engine) bulkAdd(nowMs int64, items []AddFactInput) ([]int64, error) {
	ids := make([]int64, 0, len(items))
	for _, in := range items {
		id, err := e.addFact(nowMs, in)
		if err != nil {
			return ids, fmt.Errorf("cortex: bulk add: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
