package canopy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsetSize(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 1, 2: 1, 3: 2, 4: 2, 6: 2, 7: 3, 12: 3, 13: 4, 100: 10} {
		assert.Equal(t, want, SubsetSize(n), "n=%d", n)
	}
}

func TestExhaustiveSelector(t *testing.T) {
	d := feature.NewDomain(2, []int{2, 2, 2})
	candidates, err := ExhaustiveSelector().Select(context.Background(), d.Features(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, d.Features(), candidates)
}

func TestRandomSubsetSelector(t *testing.T) {
	ctx := context.Background()
	d := feature.NewDomain(2, []int{2, 2, 2, 2, 2, 2, 2, 2, 2})
	available := d.Features()
	sel := RandomSubsetSelector()

	candidates, err := sel.Select(ctx, available, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	seen := make(map[int]bool)
	for _, c := range candidates {
		assert.False(t, seen[c.Index()])
		seen[c.Index()] = true
	}
	assert.Equal(t, d.Features(), available, "available features must not be reordered")

	again, err := sel.Select(ctx, available, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, candidates, again)

	drawn := make(map[int]bool)
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		candidates, err := sel.Select(ctx, available, rnd)
		require.NoError(t, err)
		for _, c := range candidates {
			drawn[c.Index()] = true
		}
	}
	assert.Len(t, drawn, 9)

	one, err := sel.Select(ctx, available[:1], rnd)
	require.NoError(t, err)
	assert.Equal(t, available[:1], one)
}

func TestBestPartitionPrefersLaterTies(t *testing.T) {
	ctx := context.Background()
	// attributes 1 and 2 are copies of each other
	s := newDataset(t, 2, []int{2, 2},
		[]int{1, 0, 0},
		[]int{1, 0, 0},
		[]int{2, 1, 1},
	)
	p, err := bestPartition(ctx, s, s.Domain().Features())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Feature.Index())

	reversed := []*feature.Feature{s.Domain().Feature(1), s.Domain().Feature(0)}
	p, err = bestPartition(ctx, s, reversed)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Feature.Index())
}

func TestBestPartitionNeverPicksUselessOverUseful(t *testing.T) {
	ctx := context.Background()
	// attribute 2 has a single value
	s := newDataset(t, 2, []int{2, 1},
		[]int{1, 0, 0},
		[]int{2, 1, 0},
		[]int{2, 1, 0},
	)
	p, err := bestPartition(ctx, s, s.Domain().Features())
	require.NoError(t, err)
	assert.Equal(t, 0, p.Feature.Index())
	assert.True(t, p.Reduction() > 0)
}

func TestBestPartitionWithNoReduction(t *testing.T) {
	ctx := context.Background()
	// xor: no single attribute reduces impurity
	s := newDataset(t, 2, []int{2, 2},
		[]int{1, 0, 0},
		[]int{2, 0, 1},
		[]int{2, 1, 0},
		[]int{1, 1, 1},
	)
	p, err := bestPartition(ctx, s, s.Domain().Features())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Feature.Index())

	_, err = bestPartition(ctx, s, nil)
	assert.Error(t, err)
}

// skewedCounts reports every sample as label 1, so that splits on it look
// worse than not splitting at all.
type skewedCounts struct {
	dataset.Dataset
}

func (sc skewedCounts) CountLabels(ctx context.Context) ([]int, error) {
	n, err := sc.Count(ctx)
	if err != nil {
		return nil, err
	}
	return []int{n, 0}, nil
}

func TestBestPartitionWithNegativeReductions(t *testing.T) {
	ctx := context.Background()
	s := skewedCounts{newDataset(t, 2, []int{2, 2},
		[]int{1, 0, 0},
		[]int{2, 0, 1},
		[]int{2, 1, 0},
		[]int{1, 1, 1},
	)}
	features := s.Domain().Features()
	candidates := []*feature.Feature{features[1], features[0]}
	expected, err := Reduction(ctx, s, features[1])
	require.NoError(t, err)
	require.True(t, expected < 0)

	p, err := bestPartition(ctx, s, candidates)
	require.NoError(t, err)
	assert.Equal(t, features[1], p.Feature)
	assert.Equal(t, expected, p.Reduction())
}
