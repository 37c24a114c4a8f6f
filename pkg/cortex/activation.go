package cortex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kittclouds/cortexpool/internal/store"
)

const (
	activationSeed       = 1.0
	activationFloor      = 0.01
	activationIdleDecay  = 0.05
	historyRingCap       = 1000
	historyPersistRecent = 100
)

// activationEngine holds the per-instance, in-memory spreading
// activation state: the current activation map and a bounded history
// ring. It is never shared across engines on distinct datafiles.
type activationEngine struct {
	store store.Storer

	mu         sync.Mutex
	activation map[int64]float64
	history    []store.ActivationHistoryEntry // bounded to historyRingCap
}

func newActivationEngine(s store.Storer) *activationEngine {
	return &activationEngine{store: s, activation: map[int64]float64{}}
}

// setTopics resets the activation map, bumps the EMA-like weight of
// every observed topic, and seeds activation 1.0 at every entity that
// resolves from a topic string.
func (a *activationEngine) setTopics(cfg Config, r *resolver, nowMs int64, topics []string) error {
	a.mu.Lock()
	a.activation = map[int64]float64{}
	a.mu.Unlock()

	for _, t := range topics {
		existing, err := a.findTopic(t)
		if err != nil {
			return err
		}
		weight := 1.0
		if existing != nil {
			weight = 0.9*existing.Weight + 1.0
		}
		if err := a.store.UpsertTopic(&store.Topic{Topic: t, Weight: weight, LastSeen: nowMs}); err != nil {
			return fmt.Errorf("cortex: set topics upsert: %w", err)
		}

		entity, err := r.resolveEntity(cfg, t)
		if err != nil {
			return fmt.Errorf("cortex: set topics resolve: %w", err)
		}
		if entity != nil {
			a.mu.Lock()
			a.activation[entity.ID] = activationSeed
			a.mu.Unlock()
		}
	}
	return nil
}

func (a *activationEngine) findTopic(topic string) (*store.Topic, error) {
	topics, err := a.store.ListTopics()
	if err != nil {
		return nil, fmt.Errorf("cortex: find topic: %w", err)
	}
	for _, t := range topics {
		if t.Topic == topic {
			return t, nil
		}
	}
	return nil, nil
}

// spread propagates activation for `depth` layers with geometric decay
// and per-predicate edge weighting, merging proposals into the global
// map via element-wise max, then applies idle decay and appends a
// history snapshot.
func (a *activationEngine) spread(cfg Config, nowMs int64) error {
	facts, err := a.store.ListFacts()
	if err != nil {
		return fmt.Errorf("cortex: spread list facts: %w", err)
	}

	for d := 0; d < cfg.ActivationDepth; d++ {
		a.mu.Lock()
		snapshot := make(map[int64]float64, len(a.activation))
		for id, v := range a.activation {
			snapshot[id] = v
		}
		a.mu.Unlock()

		proposals := map[int64]float64{}
		for id, level := range snapshot {
			if level < activationFloor {
				continue
			}
			for _, f := range facts {
				var other int64
				var ok bool
				switch {
				case f.SubjectID == id && f.ObjectID != nil:
					other, ok = *f.ObjectID, true
				case f.ObjectID != nil && *f.ObjectID == id:
					other, ok = f.SubjectID, true
				}
				if !ok || other == id {
					continue
				}
				proposed := level * pow(cfg.ActivationDecay, float64(d+1)) * edgeWeight(f.Predicate)
				if proposed > proposals[other] {
					proposals[other] = proposed
				}
			}
		}

		a.mu.Lock()
		for id, v := range proposals {
			if cur, ok := a.activation[id]; !ok || v > cur {
				a.activation[id] = v
			}
		}
		a.mu.Unlock()
	}

	if err := a.decayIdle(nowMs); err != nil {
		return err
	}
	return a.appendHistory(nowMs, "spread")
}

// decayIdle multiplies the activation of every entity with no history
// entry in the last hour by (1 - activationIdleDecay), dropping it
// entirely once it falls below the activation floor.
func (a *activationEngine) decayIdle(nowMs int64) error {
	oneHourAgo := nowMs - 3600_000

	a.mu.Lock()
	ids := make([]int64, 0, len(a.activation))
	for id := range a.activation {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		entries, err := a.store.ListActivationHistory(id, oneHourAgo)
		if err != nil {
			return fmt.Errorf("cortex: decay idle history: %w", err)
		}
		if len(entries) > 0 {
			continue
		}
		a.mu.Lock()
		level, ok := a.activation[id]
		if ok {
			level *= 1 - activationIdleDecay
			if level < activationFloor {
				delete(a.activation, id)
			} else {
				a.activation[id] = level
			}
		}
		a.mu.Unlock()
	}
	return nil
}

// appendHistory snapshots every currently active entity into the
// in-memory ring (trimmed to historyRingCap) and persists the most
// recent historyPersistRecent entries.
func (a *activationEngine) appendHistory(nowMs int64, source string) error {
	a.mu.Lock()
	entries := make([]store.ActivationHistoryEntry, 0, len(a.activation))
	ids := make([]int64, 0, len(a.activation))
	for id := range a.activation {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		entries = append(entries, store.ActivationHistoryEntry{
			EntityID: id, Activation: a.activation[id], Source: source, Timestamp: nowMs,
		})
	}
	a.history = append(a.history, entries...)
	if len(a.history) > historyRingCap {
		a.history = a.history[len(a.history)-historyRingCap:]
	}
	toPersist := entries
	if len(toPersist) > historyPersistRecent {
		toPersist = toPersist[len(toPersist)-historyPersistRecent:]
	}
	a.mu.Unlock()

	persist := make([]*store.ActivationHistoryEntry, len(toPersist))
	for i := range toPersist {
		e := toPersist[i]
		persist[i] = &e
	}
	if err := a.store.AppendActivationHistory(persist); err != nil {
		return fmt.Errorf("cortex: append activation history: %w", err)
	}
	return nil
}

// getActivationHistory filters the in-memory ring for one entity.
func (a *activationEngine) getActivationHistory(entityID int64, since int64) []store.ActivationHistoryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []store.ActivationHistoryEntry
	for _, e := range a.history {
		if e.EntityID == entityID && e.Timestamp >= since {
			out = append(out, e)
		}
	}
	return out
}

func (a *activationEngine) level(entityID int64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activation[entityID]
}

// pow computes base^exp for small non-negative integer-valued exp
// without pulling in math.Pow's float edge-case handling, which this
// call site never needs (exp is always depth+1, a small positive int).
func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}
