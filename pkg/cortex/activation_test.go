package cortex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetTopicsSeedsActivation(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AddEntity(1000, "William", EntityPerson, 0.9)
	require.NoError(t, err)

	require.NoError(t, e.activation.setTopics(e.cfg, e.resolver, 1000, []string{"William"}))

	ent, err := e.ResolveEntity("William")
	require.NoError(t, err)
	require.Equal(t, activationSeed, e.activation.level(ent.ID))
}

func TestSpreadPropagatesAcrossEdgeWithDecay(t *testing.T) {
	e := newTestEngine(t)

	williamID, err := e.AddEntity(1000, "William", EntityPerson, 0.9)
	require.NoError(t, err)

	tier := TierSemantic
	_, err = e.AddFact(1000, AddFactInput{
		Subject: "William", Predicate: "created", Object: "OpenLiam",
		Content: "William created OpenLiam", Tier: &tier, Confidence: 0.9,
	})
	require.NoError(t, err)

	require.NoError(t, e.activation.setTopics(e.cfg, e.resolver, 1000, []string{"William"}))
	require.NoError(t, e.activation.spread(e.cfg, 1000))

	openLiam, err := e.ResolveEntity("OpenLiam")
	require.NoError(t, err)
	require.NotNil(t, openLiam)

	level := e.activation.level(openLiam.ID)
	require.Greater(t, level, 0.0)
	require.InDelta(t, 0.5*(1-activationIdleDecay), level, 1e-9, "created is full-weight, depth-1 decay is 0.5^1, then idle decay applies (no history yet)")

	require.Equal(t, activationSeed*(1-activationIdleDecay), e.activation.level(williamID))
}

func TestSpreadWeightsRelatedToEdgeLower(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AddEntity(1000, "A", EntityOther, 0.9)
	require.NoError(t, err)

	tier := TierSemantic
	_, err = e.AddFact(1000, AddFactInput{
		Subject: "A", Predicate: "related-to", Object: "B",
		Content: "A related-to B", Tier: &tier, Confidence: 0.9,
	})
	require.NoError(t, err)

	require.NoError(t, e.activation.setTopics(e.cfg, e.resolver, 1000, []string{"A"}))
	require.NoError(t, e.activation.spread(e.cfg, 1000))

	b, err := e.ResolveEntity("B")
	require.NoError(t, err)
	require.InDelta(t, 0.35*(1-activationIdleDecay), e.activation.level(b.ID), 1e-9, "related-to carries 0.7 edge weight at depth 1, then idle decay applies")
}

func TestPowIntegerExponent(t *testing.T) {
	require.InDelta(t, 0.25, pow(0.5, 2), 1e-9)
	require.InDelta(t, 1.0, pow(0.5, 0), 1e-9)
}
