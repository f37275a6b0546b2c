package canopy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafTree(t *testing.T, d *feature.Domain, label int) *tree.Tree {
	ns := tree.NewMemoryNodeStore()
	n := &tree.Node{Prediction: label, Weight: 1}
	require.NoError(t, ns.Create(context.Background(), n))
	return tree.New(n.ID, ns, d)
}

func TestNewForestRejectsNonPositiveSizes(t *testing.T) {
	for _, size := range []int{0, -1} {
		f, err := NewForest(size)
		assert.Nil(t, f)
		var ice InvalidConfigError
		assert.True(t, errors.As(err, &ice), "size=%d", size)
	}
	f, err := NewForest(3)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Size())
}

func TestForestOfOneMatchesSingleTree(t *testing.T) {
	ctx := context.Background()
	s := randomDataset(t, 200, 17)
	const seed = 99

	f, err := NewForest(1, WithSeed(seed))
	require.NoError(t, err)
	e, err := f.Grow(ctx, s)
	require.NoError(t, err)
	require.Equal(t, 1, e.Len())

	trnd := rand.New(rand.NewSource(rand.New(rand.NewSource(seed)).Int63()))
	rs, err := dataset.Resample(ctx, s, trnd.Perm(200))
	require.NoError(t, err)
	single, err := NewPot(WithSelector(RandomSubsetSelector()), WithSeed(trnd.Int63())).Grow(ctx, rs)
	require.NoError(t, err)
	assert.Equal(t, single.String(), e.Trees()[0].String())

	samples, err := s.Samples(ctx)
	require.NoError(t, err)
	for _, sample := range samples {
		want, err := single.Predict(ctx, sample)
		require.NoError(t, err)
		got, err := e.Predict(ctx, sample)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestForestGrowIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := randomDataset(t, 150, 23)
	grow := func(opts ...Option) []string {
		f, err := NewForest(6, append([]Option{WithSeed(5)}, opts...)...)
		require.NoError(t, err)
		e, err := f.Grow(ctx, s)
		require.NoError(t, err)
		var result []string
		for _, tr := range e.Trees() {
			result = append(result, tr.String())
		}
		return result
	}
	reference := grow(WithTreeWorkers(1))
	assert.Equal(t, reference, grow(WithTreeWorkers(4)))
	assert.Equal(t, reference, grow(WithTreeWorkers(3), WithWorkers(3)))
}

func TestForestGrowWithBootstrap(t *testing.T) {
	ctx := context.Background()
	s := randomDataset(t, 200, 29)
	f, err := NewForest(15, WithResampling(Bootstrap), WithSeed(3))
	require.NoError(t, err)
	e, err := f.Grow(ctx, s)
	require.NoError(t, err)
	m, err := Evaluate(ctx, e, s)
	require.NoError(t, err)
	assert.Equal(t, 200, m.Total())
	assert.True(t, m.Correct() > 100)
	require.NoError(t, e.Close(ctx))
}

func TestForestGrowErrors(t *testing.T) {
	f, err := NewForest(2)
	require.NoError(t, err)
	_, err = f.Grow(context.Background(), newDataset(t, 2, []int{2}))
	var de dataset.DataError
	assert.True(t, errors.As(err, &de))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Grow(ctx, randomDataset(t, 20, 1))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResamplings(t *testing.T) {
	perm := Permutation(10, rand.New(rand.NewSource(1)))
	seen := make(map[int]bool)
	for _, i := range perm {
		seen[i] = true
	}
	assert.Len(t, seen, 10)

	boot := Bootstrap(10, rand.New(rand.NewSource(1)))
	assert.Len(t, boot, 10)
	for _, i := range boot {
		assert.True(t, i >= 0 && i < 10)
	}
}

func TestEnsembleVoting(t *testing.T) {
	ctx := context.Background()
	d := feature.NewDomain(3, []int{1})
	sample := dataset.NewSample(1, []int{0})
	for _, tc := range []struct {
		labels []int
		want   int
	}{
		{[]int{2}, 2},
		{[]int{2, 1}, 1},
		{[]int{3, 2, 3, 2}, 2},
		{[]int{3, 2, 3}, 3},
		{[]int{1, 3, 3, 2, 2}, 2},
	} {
		trees := make([]*tree.Tree, len(tc.labels))
		for i, l := range tc.labels {
			trees[i] = leafTree(t, d, l)
		}
		got, err := NewEnsemble(d, trees...).Predict(ctx, sample)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v", tc.labels)
	}
}

func TestEnsembleVotingIsMonotonic(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		votes := make([]int, 4)
		for j := range votes {
			votes[j] = rnd.Intn(5)
		}
		winner := dataset.Majority(votes)
		if winner == 0 {
			continue
		}
		votes[winner-1]++
		assert.Equal(t, winner, dataset.Majority(votes))
	}
}

func TestEnsembleNotTrained(t *testing.T) {
	ctx := context.Background()
	sample := dataset.NewSample(1, []int{0})
	_, err := NewEnsemble(feature.NewDomain(2, []int{1})).Predict(ctx, sample)
	assert.Equal(t, tree.ErrNotTrained, err)

	var e *Ensemble
	_, err = e.Predict(ctx, sample)
	assert.Equal(t, tree.ErrNotTrained, err)
}

func TestEnsembleVotesAndErrors(t *testing.T) {
	ctx := context.Background()
	d := feature.NewDomain(2, []int{1})
	e := NewEnsemble(d, leafTree(t, d, 2), leafTree(t, d, 2), leafTree(t, d, 1))
	votes, err := e.Votes(ctx, dataset.NewSample(1, []int{0}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, votes)

	broken := NewEnsemble(d, leafTree(t, d, 1), tree.New("", tree.NewMemoryNodeStore(), d))
	_, err = broken.Predict(ctx, dataset.NewSample(1, []int{0}))
	var nte tree.NotTrainedError
	assert.True(t, errors.As(err, &nte))

	wrong := NewEnsemble(d, leafTree(t, d, 3))
	_, err = wrong.Predict(ctx, dataset.NewSample(1, []int{0}))
	assert.Error(t, err)
}
