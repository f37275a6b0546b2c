package canopy

import (
	"context"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/tree"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

/*
Pot grows decision trees. Its zero value is not usable, build them with
NewPot.
*/
type Pot struct {
	config
}

/*
NewPot returns a Pot configured with the given options. Unless a selector
is given, every available feature is evaluated on every node.
*/
func NewPot(opts ...Option) *Pot {
	c := newConfig(opts)
	if c.selector == nil {
		c.selector = ExhaustiveSelector()
	}
	return &Pot{c}
}

/*
Grow takes a context and a training dataset and returns the tree grown
on it, or a dataset.DataError if the dataset is empty, or the error
that stopped the growth (a cancelled context, or a failing node store
or dataset).
The returned tree is not modified afterwards.
*/
func (p *Pot) Grow(ctx context.Context, s dataset.Dataset) (*tree.Tree, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, dataset.DataError("cannot grow a tree from an empty dataset")
	}
	ns, err := p.newNodeStore(ctx)
	if err != nil {
		return nil, err
	}
	q, err := p.newQueue(ctx, s, ns)
	if err != nil {
		return nil, err
	}
	defer q.Stop(ctx)
	t, err := Seed(ctx, s, p.seed, q, ns)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("growing tree", zap.Int("samples", count), zap.Int("workers", p.workers), zap.Int64("seed", p.seed))
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return Work(gctx, t, q, p.selector, p.emptyQueueSleep)
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}
	if ce := p.logger.Check(zap.DebugLevel, "tree grown"); ce != nil {
		nodes, leaves, _ := t.Count(ctx)
		depth, _ := t.Depth(ctx)
		ce.Write(zap.Int("nodes", nodes), zap.Int("leaves", leaves), zap.Int("depth", depth))
	}
	return t, nil
}
