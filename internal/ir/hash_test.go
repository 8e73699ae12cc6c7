package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsjk/Sklearn-Freezer/internal/testutil"
)

func posInf() float64 { return math.Inf(1) }

func TestHashWithDomain_Deterministic(t *testing.T) {
	h1 := hashWithDomain(DomainSource, []byte("data"))
	h2 := hashWithDomain(DomainSource, []byte("data"))
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashWithDomain_DomainSeparation(t *testing.T) {
	assert.NotEqual(t,
		hashWithDomain(DomainSource, []byte("data")),
		hashWithDomain(DomainModel, []byte("data")))
}

func TestSourceHash_DependsOnBackend(t *testing.T) {
	src := []byte("double f(void) { return 1.0; }")
	assert.NotEqual(t, SourceHash("unmanaged-native", src), SourceHash("managed-native", src))
	assert.Equal(t, SourceHash("unmanaged-native", src), SourceHash("unmanaged-native", src))
}

func TestSourceHash_NoBoundaryAmbiguity(t *testing.T) {
	assert.NotEqual(t, SourceHash("ab", []byte("c")), SourceHash("a", []byte("bc")))
}

func TestModelHash_StableAcrossExtractions(t *testing.T) {
	m1, err := Extract(testutil.NestedForest())
	require.NoError(t, err)
	m2, err := Extract(testutil.NestedForest())
	require.NoError(t, err)
	assert.Equal(t, ModelHash(m1), ModelHash(m2))
}

func TestModelHash_DistinguishesThresholds(t *testing.T) {
	a := testutil.DepthOneTree()
	b := testutil.DepthOneTree()
	b.Threshold[0] = 0.25

	ma, err := Extract(a)
	require.NoError(t, err)
	mb, err := Extract(b)
	require.NoError(t, err)
	assert.NotEqual(t, ModelHash(ma), ModelHash(mb))
}
