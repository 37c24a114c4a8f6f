package cortex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/cortexpool/internal/store"
)

func TestReflectMergesDuplicateFacts(t *testing.T) {
	e := newTestEngine(t)

	tier := TierSemantic
	id1, err := e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "uses", Content: "William uses Go for backend service",
		Tier: &tier, Confidence: 0.6,
	})
	require.NoError(t, err)
	id2, err := e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "uses", Content: "William uses Go for backend services",
		Tier: &tier, Confidence: 0.6,
	})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	result, err := e.Reflect(context.Background(), 1000)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.Compressed, 1)

	remaining, err := e.store.ListFactsByTier(TierSemantic)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

// duplicateTolerantStore keeps an entity whose canonicalName is already
// taken in memory instead of inserting it, since the backing store's
// unique canonical_name index rejects such rows. It lets a test stage
// the duplicate state that reflectConsolidateEntities repairs.
type duplicateTolerantStore struct {
	store.Storer
	dups []*Entity
}

func (d *duplicateTolerantStore) CreateEntity(ent *Entity) error {
	existing, err := d.Storer.GetEntityByCanonicalName(ent.CanonicalName)
	if err != nil {
		return err
	}
	if existing != nil {
		d.dups = append(d.dups, ent)
		return nil
	}
	return d.Storer.CreateEntity(ent)
}

func (d *duplicateTolerantStore) ListEntities() ([]*Entity, error) {
	ents, err := d.Storer.ListEntities()
	if err != nil {
		return nil, err
	}
	return append(ents, d.dups...), nil
}

func (d *duplicateTolerantStore) DeleteEntities(ids []int64) error {
	remove := map[int64]bool{}
	for _, id := range ids {
		remove[id] = true
	}
	kept := d.dups[:0]
	for _, ent := range d.dups {
		if !remove[ent.ID] {
			kept = append(kept, ent)
		}
	}
	d.dups = kept
	return d.Storer.DeleteEntities(ids)
}

func TestReflectConsolidatesDuplicateEntities(t *testing.T) {
	e := newTestEngine(t)
	e.store = &duplicateTolerantStore{Storer: e.store}

	entities, err := e.store.ListEntities()
	require.NoError(t, err)
	require.Empty(t, entities)

	id1, err := e.store.NextEntityID()
	require.NoError(t, err)
	require.NoError(t, e.store.CreateEntity(&Entity{
		ID: id1, Name: "William", CanonicalName: "william", Type: EntityPerson,
		Aliases: []string{"William"}, Confidence: 0.9, CreatedAt: 1000,
	}))
	id2 := id1 + 1
	require.NoError(t, e.store.CreateEntity(&Entity{
		ID: id2, Name: "william", CanonicalName: "william", Type: EntityPerson,
		Aliases: []string{"william"}, Confidence: 0.7, CreatedAt: 2000,
	}))

	n, err := e.reflectConsolidateEntities()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	survivors, err := e.store.ListEntities()
	require.NoError(t, err)
	require.Len(t, survivors, 1)
	require.ElementsMatch(t, []string{"William", "william"}, survivors[0].Aliases)
}

func TestReflectDecayDeletesBelowFloor(t *testing.T) {
	backing, err := store.NewSQLiteStore()
	require.NoError(t, err)
	t.Cleanup(func() { backing.Close() })

	cfg := DefaultConfig()
	cfg.TierConfigs = map[Tier]TierConfig{
		TierEpisodic: {DecayRate: 1.0, BaseImportance: 0.05},
	}
	e := NewEngine(backing, cfg, nil)

	tier := TierEpisodic
	id, err := e.AddFact(1000, AddFactInput{
		Subject: "X", Predicate: "mentioned", Content: "X mentioned something transient",
		Tier: &tier, Confidence: 0.5,
	})
	require.NoError(t, err)

	farFuture := int64(1000) + 1000*3600_000
	require.NoError(t, e.reflectDecay(farFuture))

	gone, err := e.store.GetFact(id)
	require.NoError(t, err)
	require.Nil(t, gone, "decay converges to the tier base importance, which is below the delete floor here")
}

func TestCleanupExpiredEpisodicNotInvokedByReflect(t *testing.T) {
	e := newTestEngine(t)

	tier := TierEpisodic
	ttl := int64(1000)
	id, err := e.AddFact(1000, AddFactInput{
		Subject: "X", Predicate: "mentioned", Content: "X mentioned a short-lived detail",
		Tier: &tier, Confidence: 0.9, TTL: &ttl,
	})
	require.NoError(t, err)

	_, err = e.Reflect(context.Background(), 5000)
	require.NoError(t, err)

	stillThere, err := e.store.GetFact(id)
	require.NoError(t, err)
	require.NotNil(t, stillThere, "reflect must never call cleanupExpiredEpisodic")

	n, err := e.CleanupExpiredEpisodic(5000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	gone, err := e.store.GetFact(id)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestReflectDetectsContradictions(t *testing.T) {
	e := newTestEngine(t)

	tier := TierSemantic
	_, err := e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "prefers", Content: "William prefers tabs",
		Tier: &tier, Confidence: 0.8,
	})
	require.NoError(t, err)
	_, err = e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "prefers", Content: "William prefers spaces",
		Tier: &tier, Confidence: 0.8,
	})
	require.NoError(t, err)

	result, err := e.Reflect(context.Background(), 1000)
	require.NoError(t, err)
	require.Equal(t, 1, result.Contradictions)
}
