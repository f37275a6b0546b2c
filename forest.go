package canopy

import (
	"context"
	"math/rand"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

/*
Forest grows random forests: ensembles of trees, each grown on a
resample of the training data, drawing a random subset of candidate
features on every node.
*/
type Forest struct {
	config
	size int
}

/*
NewForest takes the number of trees of the forests to grow and a set of
options and returns a Forest, or an InvalidConfigError if the size is not
positive.
*/
func NewForest(size int, opts ...Option) (*Forest, error) {
	if size <= 0 {
		return nil, invalidConfigErrorf("forest size must be positive, got %d", size)
	}
	c := newConfig(opts)
	if c.selector == nil {
		c.selector = RandomSubsetSelector()
	}
	return &Forest{c, size}, nil
}

// Size returns the number of trees of the forests grown.
func (f *Forest) Size() int {
	return f.size
}

/*
Grow takes a context and a training dataset and returns the ensemble of
trees grown on it, or the first error that stopped the growth of a tree.

The seed of every tree is drawn from the forest's random stream before
any tree is grown. The stream of a tree draws its resample first and then
the seed its nodes are grown with, so the ensemble only depends on the
forest seed, never on how trees are scheduled.
*/
func (f *Forest) Grow(ctx context.Context, s dataset.Dataset) (*Ensemble, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, dataset.DataError("cannot grow a forest from an empty dataset")
	}
	rnd := rand.New(rand.NewSource(f.seed))
	seeds := make([]int64, f.size)
	for i := range seeds {
		seeds[i] = rnd.Int63()
	}
	f.logger.Debug("growing forest", zap.Int("trees", f.size), zap.Int("samples", count), zap.Int("workers", f.treeWorkers))
	trees := make([]*tree.Tree, f.size)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.treeWorkers)
	for i := range trees {
		g.Go(func() error {
			trnd := rand.New(rand.NewSource(seeds[i]))
			rs, err := dataset.Resample(gctx, s, f.resampling(count, trnd))
			if err != nil {
				return errors.Wrapf(err, "resampling for tree %d", i)
			}
			c := f.config
			c.seed = trnd.Int63()
			t, err := (&Pot{c}).Grow(gctx, rs)
			if err != nil {
				return errors.Wrapf(err, "growing tree %d", i)
			}
			trees[i] = t
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}
	f.logger.Debug("forest grown", zap.Int("trees", f.size))
	return NewEnsemble(s.Domain(), trees...), nil
}

/*
Ensemble is a trained random forest: an ordered set of trees voting on
the label of samples. Ensembles are not modified once built and can be
used by concurrent callers.
*/
type Ensemble struct {
	domain *feature.Domain
	trees  []*tree.Tree
}

// NewEnsemble returns the ensemble of the given trees, classifying
// samples of the given domain.
func NewEnsemble(d *feature.Domain, trees ...*tree.Tree) *Ensemble {
	return &Ensemble{d, append([]*tree.Tree(nil), trees...)}
}

// Trees returns the trees of the ensemble in order.
func (e *Ensemble) Trees() []*tree.Tree {
	return append([]*tree.Tree(nil), e.trees...)
}

// Len returns the number of trees of the ensemble.
func (e *Ensemble) Len() int {
	if e == nil {
		return 0
	}
	return len(e.trees)
}

/*
Votes takes a sample and returns how many trees of the ensemble predict
each label for it, indexed by label-1. It returns tree.ErrNotTrained for
an empty ensemble, and the first error returned by a tree otherwise.
*/
func (e *Ensemble) Votes(ctx context.Context, s feature.Sample) ([]int, error) {
	if e.Len() == 0 {
		return nil, tree.ErrNotTrained
	}
	votes := make([]int, e.domain.Labels())
	for i, t := range e.trees {
		label, err := t.Predict(ctx, s)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		if label < 1 || label > len(votes) {
			return nil, errors.Errorf("tree %d predicted unknown label %d", i, label)
		}
		votes[label-1]++
	}
	return votes, nil
}

/*
Predict takes a sample and returns the label most trees of the ensemble
predict for it. Ties go to the smallest label.
*/
func (e *Ensemble) Predict(ctx context.Context, s feature.Sample) (int, error) {
	votes, err := e.Votes(ctx, s)
	if err != nil {
		return 0, err
	}
	return dataset.Majority(votes), nil
}

// Close closes the node stores of the trees of the ensemble.
func (e *Ensemble) Close(ctx context.Context) error {
	for _, t := range e.trees {
		if err := t.Close(ctx); err != nil {
			return err
		}
	}
	return nil
}
