package cortex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetrieveRejectsEmptyTopics(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Retrieve(context.Background(), 1000, nil, RetrieveOptions{})
	require.ErrorIs(t, err, ErrInvalidTopics)
}

func TestRetrieveRanksRelevantFactFirst(t *testing.T) {
	e := newTestEngine(t)

	tier := TierSemantic
	_, err := e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "created", Object: "OpenLiam",
		Content: "William created OpenLiam", Tier: &tier, Confidence: 0.9,
	})
	require.NoError(t, err)
	_, err = e.AddFact(1000, AddFactInput{
		Subject: "Someone", Predicate: "knows", Content: "Someone knows a fact about nothing relevant",
		Tier: &tier, Confidence: 0.5,
	})
	require.NoError(t, err)

	results, err := e.Retrieve(context.Background(), 2000, []string{"OpenLiam"}, RetrieveOptions{PoolSize: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Contains(t, results[0].Fact.Content, "OpenLiam")
	require.Greater(t, results[0].Score, 0.4)

	pool, err := e.store.ListPool()
	require.NoError(t, err)
	require.NotEmpty(t, pool)
}

func TestRetrievePersistsCurrentTopics(t *testing.T) {
	e := newTestEngine(t)

	tier := TierSemantic
	_, err := e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "created", Content: "William created something",
		Tier: &tier, Confidence: 0.9,
	})
	require.NoError(t, err)

	_, err = e.Retrieve(context.Background(), 1000, []string{"William"}, RetrieveOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"William"}, e.currentTopics)
}

type stubVectorBackend struct {
	hits []VectorHit
	err  error
}

func (s *stubVectorBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (s *stubVectorBackend) SearchByVector(ctx context.Context, queryText string, limit int) ([]VectorHit, error) {
	return s.hits, s.err
}

func TestRetrieveFallsBackSilentlyOnVectorError(t *testing.T) {
	s := newTestEngine(t)
	s.vector = &stubVectorBackend{err: errors.New("vector backend unavailable"), hits: nil}

	tier := TierSemantic
	_, err := s.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "created", Content: "William created OpenLiam",
		Tier: &tier, Confidence: 0.9,
	})
	require.NoError(t, err)

	results, err := s.Retrieve(context.Background(), 2000, []string{"William"}, RetrieveOptions{UseVectors: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
