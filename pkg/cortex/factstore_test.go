package cortex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFactDefaultsToSemanticTier(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.AddFact(1000, AddFactInput{
		Subject:   "William",
		Predicate: "created",
		Object:    "OpenLiam",
		Content:   "William created OpenLiam",
	})
	require.NoError(t, err)

	fact, err := e.store.GetFact(id)
	require.NoError(t, err)
	require.NotNil(t, fact)
	require.Equal(t, TierSemantic, fact.Tier)
	require.Nil(t, fact.TTL)
	require.InDelta(t, 0.7, fact.Confidence, 1e-9)
	require.InDelta(t, 0.6, fact.Importance, 1e-9)
}

func TestAddFactEpisodicDefaultTTL(t *testing.T) {
	e := newTestEngine(t)

	tier := TierEpisodic
	id, err := e.AddFact(1000, AddFactInput{
		Subject:   "William",
		Predicate: "mentioned",
		Content:   "William mentioned a deadline",
		Tier:      &tier,
	})
	require.NoError(t, err)

	fact, err := e.store.GetFact(id)
	require.NoError(t, err)
	require.NotNil(t, fact.TTL)
	require.Equal(t, int64(604800000), *fact.TTL)
}

func TestAddFactRejectsMissingFields(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AddFact(1000, AddFactInput{Predicate: "knows", Content: "x"})
	require.ErrorIs(t, err, ErrInvalidFact)
}

func TestUseFactBumpsImportanceCapped(t *testing.T) {
	e := newTestEngine(t)

	tier := TierStructural
	id, err := e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "is", Content: "William is the maintainer",
		Tier: &tier, Confidence: 0.9,
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, e.UseFact(2000, id))
	}

	fact, err := e.store.GetFact(id)
	require.NoError(t, err)
	require.LessOrEqual(t, fact.Importance, 1.0)
	require.Equal(t, 5, fact.UseCount)
	require.Equal(t, int64(2000), fact.LastUsed)
}

func TestBulkAddSequentialPartialOnError(t *testing.T) {
	e := newTestEngine(t)

	ids, err := e.BulkAdd(1000, []AddFactInput{
		{Subject: "William", Predicate: "knows", Content: "William knows Liam"},
		{Predicate: "knows", Content: "invalid, no subject"},
		{Subject: "William", Predicate: "uses", Content: "William uses Go"},
	})
	require.Error(t, err)
	require.Len(t, ids, 1)
}
