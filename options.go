package canopy

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/queue"
	"github.com/pbanos/canopy/tree"
	"go.uber.org/zap"
)

// NodeStoreFactory returns the node store on which a new tree is grown.
type NodeStoreFactory func(ctx context.Context) (tree.NodeStore, error)

// QueueFactory returns the queue of tasks a tree is grown with, given the
// dataset the tree is grown on and the node store holding its nodes.
type QueueFactory func(ctx context.Context, s dataset.Dataset, ns tree.NodeStore) (queue.Queue, error)

/*
Resampling takes the size n of a training dataset and a random stream and
returns the indices of the samples of the dataset a forest member is grown
on.
*/
type Resampling func(n int, rnd *rand.Rand) []int

/*
Permutation is the default Resampling of forests: every sample is used
exactly once, in a shuffled order.
*/
func Permutation(n int, rnd *rand.Rand) []int {
	return rnd.Perm(n)
}

/*
Bootstrap is the Resampling of canonical random forests: n samples drawn
uniformly with replacement, so some are repeated and others left out.
*/
func Bootstrap(n int, rnd *rand.Rand) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rnd.Intn(n)
	}
	return indices
}

type config struct {
	selector        Selector
	seed            int64
	workers         int
	treeWorkers     int
	newNodeStore    NodeStoreFactory
	newQueue        QueueFactory
	resampling      Resampling
	emptyQueueSleep time.Duration
	logger          *zap.Logger
}

// Option configures a Pot or a Forest.
type Option func(*config)

func newConfig(opts []Option) config {
	c := config{
		seed:        1,
		workers:     1,
		treeWorkers: runtime.GOMAXPROCS(0),
		newNodeStore: func(context.Context) (tree.NodeStore, error) {
			return tree.NewMemoryNodeStore(), nil
		},
		newQueue: func(context.Context, dataset.Dataset, tree.NodeStore) (queue.Queue, error) {
			return queue.New(), nil
		},
		resampling:      Permutation,
		emptyQueueSleep: time.Millisecond,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithSelector sets the selector of candidate features for splitting nodes.
// Pots default to ExhaustiveSelector and forests to RandomSubsetSelector.
func WithSelector(s Selector) Option {
	return func(c *config) {
		c.selector = s
	}
}

// WithSeed sets the seed of the random stream trees and forests are grown
// with. Growing with the same seed on the same data yields the same model.
func WithSeed(seed int64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithWorkers sets the number of workers growing the nodes of each tree.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithTreeWorkers sets the number of trees of a forest grown at the same
// time. It defaults to GOMAXPROCS.
func WithTreeWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.treeWorkers = n
		}
	}
}

// WithNodeStore sets the factory of the node stores trees are grown on.
// Trees are grown in memory by default.
func WithNodeStore(f NodeStoreFactory) Option {
	return func(c *config) {
		c.newNodeStore = f
	}
}

// WithQueue sets the factory of the task queues trees are grown with.
// Tasks are kept in memory by default.
func WithQueue(f QueueFactory) Option {
	return func(c *config) {
		c.newQueue = f
	}
}

// WithResampling sets how forests resample the training data for each of
// their trees. It defaults to Permutation.
func WithResampling(r Resampling) Option {
	return func(c *config) {
		c.resampling = r
	}
}

// WithEmptyQueueSleep sets how long idle workers wait before pulling tasks
// again.
func WithEmptyQueueSleep(d time.Duration) Option {
	return func(c *config) {
		c.emptyQueueSleep = d
	}
}

// WithLogger sets the logger that reports the progress of growing models.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
