package canopy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/queue"
	"github.com/pbanos/canopy/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// randomDataset returns n samples over 5 attributes whose label mostly
// depends on the first two attributes.
func randomDataset(t *testing.T, n int, seed int64) dataset.Dataset {
	rnd := rand.New(rand.NewSource(seed))
	sizes := []int{2, 3, 2, 4, 3}
	samples := make([]*dataset.Sample, n)
	for i := range samples {
		values := make([]int, len(sizes))
		for j, s := range sizes {
			values[j] = rnd.Intn(s)
		}
		label := (values[0]+values[1])%3 + 1
		if rnd.Intn(10) == 0 {
			label = rnd.Intn(3) + 1
		}
		samples[i] = dataset.NewSample(label, values)
	}
	s, err := dataset.New(feature.NewDomain(3, sizes), samples)
	require.NoError(t, err)
	return s
}

func TestPotGrowSimpleSplit(t *testing.T) {
	ctx := context.Background()
	s := newDataset(t, 2, []int{2},
		[]int{1, 0},
		[]int{1, 0},
		[]int{2, 1},
	)
	tr, err := NewPot().Grow(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "#a1 (3)\n|__= 0 -> [1] (2)\n|__= 1 -> [2] (1)\n", tr.String())

	label, err := tr.Predict(ctx, dataset.NewSample(0, []int{0}))
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	label, err = tr.Predict(ctx, dataset.NewSample(0, []int{1}))
	require.NoError(t, err)
	assert.Equal(t, 2, label)

	depth, err := tr.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestPotGrowPureDataset(t *testing.T) {
	s := newDataset(t, 3, []int{2, 2},
		[]int{3, 0, 1},
		[]int{3, 1, 0},
		[]int{3, 1, 1},
	)
	tr, err := NewPot().Grow(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "-> [3] (3)\n", tr.String())
}

func TestPotGrowEmptyPartitionInheritsMajority(t *testing.T) {
	s := newDataset(t, 2, []int{3},
		[]int{1, 0},
		[]int{2, 1},
		[]int{2, 1},
	)
	tr, err := NewPot().Grow(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "#a1 (3)\n|__= 0 -> [1] (1)\n|__= 1 -> [2] (2)\n|__= 2 -> [2] (0)\n", tr.String())
}

func TestPotGrowRunsOutOfFeatures(t *testing.T) {
	s := newDataset(t, 2, []int{1},
		[]int{1, 0},
		[]int{2, 0},
		[]int{2, 0},
	)
	tr, err := NewPot().Grow(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "#a1 (3)\n|__= 0 -> [2] (3)\n", tr.String())
}

func TestPotGrowMajorityTieGoesToSmallestLabel(t *testing.T) {
	s := newDataset(t, 3, []int{1},
		[]int{3, 0},
		[]int{2, 0},
		[]int{3, 0},
		[]int{2, 0},
	)
	tr, err := NewPot().Grow(context.Background(), s)
	require.NoError(t, err)
	label, err := tr.Predict(context.Background(), dataset.NewSample(0, []int{0}))
	require.NoError(t, err)
	assert.Equal(t, 2, label)
}

func TestPotGrowEmptyDataset(t *testing.T) {
	_, err := NewPot().Grow(context.Background(), newDataset(t, 2, []int{2}))
	var de dataset.DataError
	assert.True(t, errors.As(err, &de))
}

func TestPotGrowCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPot().Grow(ctx, randomDataset(t, 50, 1))
	assert.True(t, errors.Is(err, context.Canceled))
}

type stoppedQueue struct {
	queue.Queue
	stopped bool
}

func (sq *stoppedQueue) Stop(ctx context.Context) error {
	sq.stopped = true
	return sq.Queue.Stop(ctx)
}

func TestPotGrowWithQueue(t *testing.T) {
	ctx := context.Background()
	s := randomDataset(t, 100, 2)
	var sq *stoppedQueue
	tr, err := NewPot(WithQueue(func(ctx context.Context, root dataset.Dataset, ns tree.NodeStore) (queue.Queue, error) {
		assert.Equal(t, s, root)
		sq = &stoppedQueue{Queue: queue.New()}
		return sq, nil
	})).Grow(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, sq)
	assert.True(t, sq.stopped)
	reference, err := NewPot().Grow(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, reference.String(), tr.String())

	failure := errors.New("no queue")
	_, err = NewPot(WithQueue(func(context.Context, dataset.Dataset, tree.NodeStore) (queue.Queue, error) {
		return nil, failure
	})).Grow(ctx, s)
	assert.Equal(t, failure, err)
}

func TestPotGrowIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := randomDataset(t, 300, 3)
	for _, sel := range []Selector{ExhaustiveSelector(), RandomSubsetSelector()} {
		reference, err := NewPot(WithSelector(sel), WithSeed(42)).Grow(ctx, s)
		require.NoError(t, err)
		for _, workers := range []int{1, 2, 8} {
			tr, err := NewPot(WithSelector(sel), WithSeed(42), WithWorkers(workers), WithLogger(zap.NewNop())).Grow(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, reference.String(), tr.String(), "workers=%d", workers)
		}
	}
}

func TestPotGrowNeverReusesFeaturesOnAPath(t *testing.T) {
	ctx := context.Background()
	tr, err := NewPot(WithSelector(RandomSubsetSelector()), WithWorkers(4)).Grow(ctx, randomDataset(t, 300, 5))
	require.NoError(t, err)
	paths := map[string][]int{}
	err = tr.Traverse(ctx, false, func(ctx context.Context, n *tree.Node) error {
		used := append([]int(nil), paths[n.ParentID]...)
		if n.SubtreeFeature != nil {
			for _, u := range used {
				assert.NotEqual(t, u, n.SubtreeFeature.Index())
			}
			used = append(used, n.SubtreeFeature.Index())
			assert.Len(t, n.SubtreeIDs, n.SubtreeFeature.Size())
		}
		paths[n.ID] = used
		return nil
	})
	require.NoError(t, err)
}

// leafFor walks the tree like Predict does and returns the leaf reached.
func leafFor(ctx context.Context, t *testing.T, tr *tree.Tree, s *dataset.Sample) *tree.Node {
	n, err := tr.Get(ctx, tr.RootID)
	require.NoError(t, err)
	for !n.IsLeaf() {
		v, err := s.ValueFor(n.SubtreeFeature)
		require.NoError(t, err)
		n, err = tr.Get(ctx, n.SubtreeIDs[v])
		require.NoError(t, err)
	}
	return n
}

func TestPotGrowPredictionsMatchLeafMajorities(t *testing.T) {
	ctx := context.Background()
	s := randomDataset(t, 400, 9)
	tr, err := NewPot().Grow(ctx, s)
	require.NoError(t, err)
	samples, err := s.Samples(ctx)
	require.NoError(t, err)

	counts := map[string][]int{}
	leaves := map[string]*tree.Node{}
	for _, sample := range samples {
		leaf := leafFor(ctx, t, tr, sample)
		if counts[leaf.ID] == nil {
			counts[leaf.ID] = make([]int, 3)
		}
		counts[leaf.ID][sample.Label()-1]++
		leaves[leaf.ID] = leaf

		label, err := tr.Predict(ctx, sample)
		require.NoError(t, err)
		assert.Equal(t, leaf.Prediction, label)
	}
	for id, c := range counts {
		assert.Equal(t, dataset.Majority(c), leaves[id].Prediction)
		assert.Equal(t, c[0]+c[1]+c[2], leaves[id].Weight)
	}
}

type failingStore struct {
	tree.NodeStore
}

func (fs failingStore) Store(ctx context.Context, n *tree.Node) error {
	return errors.New("store unavailable")
}

type failingCreateStore struct {
	tree.NodeStore
	creates int
}

func (fcs *failingCreateStore) Create(ctx context.Context, n *tree.Node) error {
	fcs.creates++
	if fcs.creates > 2 {
		return errors.New("create unavailable")
	}
	return fcs.NodeStore.Create(ctx, n)
}

func TestPotGrowFailingChildCreationKeepsRootALeaf(t *testing.T) {
	ctx := context.Background()
	memory := tree.NewMemoryNodeStore()
	s := newDataset(t, 2, []int{3},
		[]int{1, 0},
		[]int{2, 1},
		[]int{1, 2},
	)
	_, err := NewPot(WithNodeStore(func(context.Context) (tree.NodeStore, error) {
		return &failingCreateStore{NodeStore: memory}, nil
	})).Grow(ctx, s)
	assert.EqualError(t, err, "create unavailable")

	root, err := memory.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.True(t, root.IsLeaf())
	assert.Empty(t, root.SubtreeIDs)
	assert.Equal(t, 3, root.Weight)
}

func TestPotGrowFailingNodeStore(t *testing.T) {
	pot := NewPot(WithNodeStore(func(context.Context) (tree.NodeStore, error) {
		return failingStore{tree.NewMemoryNodeStore()}, nil
	}))
	_, err := pot.Grow(context.Background(), randomDataset(t, 20, 1))
	assert.EqualError(t, err, "store unavailable")
}
