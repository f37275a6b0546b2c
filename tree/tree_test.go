package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/pbanos/canopy/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vector []int

func (v vector) ValueFor(f *feature.Feature) (int, error) {
	if f.Index() >= len(v) {
		return 0, errors.New("too short")
	}
	return v[f.Index()], nil
}

// buildTree grows by hand the tree
//
//	#a1
//	|__= 0 -> [1]
//	|__= 1 #a2
//	       |__= 0 -> [2]
//	       |__= 1 -> [1]
func buildTree(t *testing.T) *Tree {
	ctx := context.Background()
	d := feature.NewDomain(2, []int{2, 2})
	a1, a2 := d.Feature(0), d.Feature(1)
	ns := NewMemoryNodeStore()
	root := &Node{Prediction: 1, Weight: 5, SubtreeFeature: a1}
	require.NoError(t, ns.Create(ctx, root))
	left := &Node{ParentID: root.ID, Prediction: 1, Weight: 2, FeatureCriterion: feature.NewCriterion(a1, 0)}
	right := &Node{ParentID: root.ID, Prediction: 2, Weight: 3, FeatureCriterion: feature.NewCriterion(a1, 1), SubtreeFeature: a2}
	require.NoError(t, ns.Create(ctx, left))
	require.NoError(t, ns.Create(ctx, right))
	rl := &Node{ParentID: right.ID, Prediction: 2, Weight: 2, FeatureCriterion: feature.NewCriterion(a2, 0)}
	rr := &Node{ParentID: right.ID, Prediction: 1, Weight: 1, FeatureCriterion: feature.NewCriterion(a2, 1)}
	require.NoError(t, ns.Create(ctx, rl))
	require.NoError(t, ns.Create(ctx, rr))
	right.SubtreeIDs = []string{rl.ID, rr.ID}
	root.SubtreeIDs = []string{left.ID, right.ID}
	require.NoError(t, ns.Store(ctx, right))
	require.NoError(t, ns.Store(ctx, root))
	return New(root.ID, ns, d)
}

func TestPredict(t *testing.T) {
	ctx := context.Background()
	tr := buildTree(t)
	for _, tc := range []struct {
		sample vector
		label  int
	}{
		{vector{0, 0}, 1},
		{vector{0, 1}, 1},
		{vector{1, 0}, 2},
		{vector{1, 1}, 1},
	} {
		label, err := tr.Predict(ctx, tc.sample)
		require.NoError(t, err)
		assert.Equal(t, tc.label, label, "%v", tc.sample)
	}
}

func TestPredictIndexError(t *testing.T) {
	ctx := context.Background()
	tr := buildTree(t)

	_, err := tr.Predict(ctx, vector{2, 0})
	var ie *IndexError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "a1", ie.Feature)
	assert.Equal(t, 2, ie.Value)
	assert.Equal(t, 2, ie.Size)

	_, err = tr.Predict(ctx, vector{1})
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "a2", ie.Feature)
	assert.Error(t, ie.Unwrap())
}

func TestPredictNotTrained(t *testing.T) {
	ctx := context.Background()
	var nilTree *Tree
	_, err := nilTree.Predict(ctx, vector{0})
	assert.Equal(t, ErrNotTrained, err)

	_, err = New("", NewMemoryNodeStore(), nil).Predict(ctx, vector{0})
	assert.Equal(t, ErrNotTrained, err)

	_, err = New("42", NewMemoryNodeStore(), nil).Predict(ctx, vector{0})
	var nte NotTrainedError
	assert.True(t, errors.As(err, &nte))
}

func TestDepthAndCount(t *testing.T) {
	ctx := context.Background()
	tr := buildTree(t)
	depth, err := tr.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	nodes, leaves, err := tr.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, nodes)
	assert.Equal(t, 3, leaves)

	ns := NewMemoryNodeStore()
	leaf := &Node{Prediction: 1}
	require.NoError(t, ns.Create(ctx, leaf))
	depth, err = New(leaf.ID, ns, nil).Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestTraverseOrder(t *testing.T) {
	ctx := context.Background()
	tr := buildTree(t)
	var topdown, bottomup []int
	require.NoError(t, tr.Traverse(ctx, false, func(ctx context.Context, n *Node) error {
		topdown = append(topdown, n.Weight)
		return nil
	}))
	require.NoError(t, tr.Traverse(ctx, true, func(ctx context.Context, n *Node) error {
		bottomup = append(bottomup, n.Weight)
		return nil
	}))
	assert.Equal(t, []int{5, 2, 3, 2, 1}, topdown)
	assert.Equal(t, []int{2, 2, 1, 3, 5}, bottomup)

	stop := errors.New("stop")
	err := tr.Traverse(ctx, false, func(ctx context.Context, n *Node) error {
		return stop
	})
	assert.Equal(t, stop, err)
}

func TestString(t *testing.T) {
	expected := "#a1 (5)\n" +
		"|__= 0 -> [1] (2)\n" +
		"|__= 1 #a2 (3)\n" +
		"   |__= 0 -> [2] (2)\n" +
		"   |__= 1 -> [1] (1)\n"
	assert.Equal(t, expected, buildTree(t).String())
	var nilTree *Tree
	assert.Equal(t, "<untrained>\n", nilTree.String())
}

func TestMemoryNodeStore(t *testing.T) {
	ctx := context.Background()
	ns := NewMemoryNodeStore()
	n1, n2 := &Node{}, &Node{}
	require.NoError(t, ns.Create(ctx, n1))
	require.NoError(t, ns.Create(ctx, n2))
	assert.NotEqual(t, n1.ID, n2.ID)

	got, err := ns.Get(ctx, n1.ID)
	require.NoError(t, err)
	assert.True(t, got == n1)

	require.NoError(t, ns.Delete(ctx, n1))
	got, err = ns.Get(ctx, n1.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, context.Canceled, ns.Create(cctx, &Node{}))
	assert.NoError(t, ns.Close(ctx))
}
