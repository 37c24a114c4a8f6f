package vecstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbedIsDeterministic(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	v1, err := s.Embed(context.Background(), "William created OpenLiam")
	require.NoError(t, err)
	v2, err := s.Embed(context.Background(), "William created OpenLiam")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Len(t, v1, dimensions)
}

func TestUpsertAndSearchByVectorFindsNearest(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, 1, "William created OpenLiam"))
	require.NoError(t, s.Upsert(ctx, 2, "The weather today is cold"))

	hits, err := s.SearchByVector(ctx, "William created OpenLiam", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.Equal(t, int64(1), hits[0].FactID)
	require.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestDeleteRemovesEmbedding(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, 1, "William created OpenLiam"))
	require.NoError(t, s.Delete(ctx, 1))

	hits, err := s.SearchByVector(ctx, "William created OpenLiam", 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}
