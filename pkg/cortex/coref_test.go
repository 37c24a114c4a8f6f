package cortex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCoReferenceRejectsOpenClassWords(t *testing.T) {
	e := newTestEngine(t)

	ent, err := e.ResolveCoReference(1000, "William", nil)
	require.NoError(t, err)
	require.Nil(t, ent, "William is not in the closed pronoun set")
}

func TestResolveCoReferenceFromCache(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.AddEntity(1000, "William", EntityPerson, 0.9)
	require.NoError(t, err)

	require.NoError(t, e.AddCoReference(1000, "he", id, "William is working on this"))

	ent, err := e.ResolveCoReference(1100, "he", nil)
	require.NoError(t, err)
	require.NotNil(t, ent)
	require.Equal(t, id, ent.ID)
}

func TestResolveCoReferenceExpiresOutsideWindow(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.AddEntity(1000, "William", EntityPerson, 0.9)
	require.NoError(t, err)
	require.NoError(t, e.AddCoReference(1000, "he", id, "William is working on this"))

	farFuture := int64(1000) + e.cfg.CoReferenceWindow.Milliseconds() + 1
	ent, err := e.ResolveCoReference(farFuture, "he", nil)
	require.NoError(t, err)
	require.Nil(t, ent)
}

func TestResolveCoReferenceFallsBackToContext(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AddEntity(1000, "OpenLiam", EntityProject, 0.9)
	require.NoError(t, err)

	ent, err := e.ResolveCoReference(1000, "it", []string{"OpenLiam needs a release"})
	require.NoError(t, err)
	require.NotNil(t, ent)
	require.Equal(t, "openliam", ent.CanonicalName)
}
