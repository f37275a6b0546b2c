package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/pbanos/canopy"
	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/feature/yaml"
	"github.com/pbanos/canopy/queue"
	queuejson "github.com/pbanos/canopy/queue/json"
	"github.com/pbanos/canopy/queue/redisq"
	"github.com/pbanos/canopy/report"
	"github.com/pbanos/canopy/tree"
	"github.com/pbanos/canopy/tree/redisstore"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/redis.v5"
)

const redisLockTTL = 5 * time.Second

/*
modelCmdConfig holds the flags shared by the commands that grow models
from a training set and test them against a testing set.
*/
type modelCmdConfig struct {
	*rootCmdConfig
	cmd           *cobra.Command
	trainInput    string
	testInput     string
	metadataInput string
	seed          int64
	workers       int
	treeWorkers   int
	redisAddr     string
	cpuIntensive  bool
	print         bool
}

func newModelCmdConfig(rootConfig *rootCmdConfig, cmd *cobra.Command) *modelCmdConfig {
	mcc := &modelCmdConfig{rootCmdConfig: rootConfig, cmd: cmd}
	cmd.Flags().StringVar(&(mcc.trainInput), "train", "", "training set location: "+locationHelp+" (defaults to STDIN, interpreted as sparse)")
	cmd.Flags().StringVar(&(mcc.testInput), "test", "", "testing set location: "+locationHelp)
	cmd.Flags().StringVarP(&(mcc.metadataInput), "metadata", "m", "", "path to a YML file declaring the domain of the data (labels and attribute sizes) instead of deriving it from the training set")
	cmd.Flags().Int64Var(&(mcc.seed), "seed", 1, "seed of the random choices made while growing")
	cmd.Flags().IntVarP(&(mcc.workers), "workers", "w", 1, "number of nodes of a tree developed concurrently")
	cmd.Flags().StringVar(&(mcc.redisAddr), "redis", "", "address of a redis server on which to keep the nodes and pending tasks of trees while growing them")
	cmd.Flags().BoolVar(&(mcc.cpuIntensive), "cpu-intensive", false, "force the use of cpu-intensive subsetting to decrease memory use at the cost of increasing time")
	cmd.Flags().BoolVarP(&(mcc.print), "print", "p", false, "print the grown trees")
	return mcc
}

// applyRunConfig sets the flags not given explicitly from the run configuration.
func (mcc *modelCmdConfig) applyRunConfig() {
	flags := mcc.cmd.Flags()
	if !flags.Changed("seed") {
		mcc.seed = mcc.run.Seed
	}
	if !flags.Changed("workers") {
		mcc.workers = mcc.run.Workers
	}
	if !flags.Changed("redis") {
		mcc.redisAddr = mcc.run.Redis.Addr
	}
	if !flags.Changed("cpu-intensive") {
		mcc.cpuIntensive = mcc.run.CPUIntensive
	}
	mcc.treeWorkers = mcc.run.TreeWorkers
}

func (mcc *modelCmdConfig) Validate() error {
	mcc.applyRunConfig()
	if mcc.workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", mcc.workers)
	}
	if mcc.treeWorkers < 0 {
		return fmt.Errorf("tree_workers must not be negative, got %d", mcc.treeWorkers)
	}
	return nil
}

/*
trainingSet returns the training set, and a closer that releases it.
*/
func (mcc *modelCmdConfig) trainingSet() (dataset.Dataset, closer, error) {
	var d *feature.Domain
	var err error
	if mcc.metadataInput != "" {
		mcc.Logf("Reading domain from metadata at %s...", mcc.metadataInput)
		d, err = yaml.ReadDomainFromFile(mcc.metadataInput)
		if err != nil {
			return nil, nil, err
		}
	}
	training, closeTraining, err := readSet(mcc.Context(), mcc.logger, mcc.trainInput, d, mcc.cpuIntensive)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading training set")
	}
	mcc.Logf("Read training set: %s", describe(mcc.Context(), training))
	return training, closeTraining, nil
}

/*
sets returns the training and testing sets, and a closer that releases
them. The testing set is read over the domain of the training set.
*/
func (mcc *modelCmdConfig) sets() (dataset.Dataset, dataset.Dataset, closer, error) {
	training, closeTraining, err := mcc.trainingSet()
	if err != nil {
		return nil, nil, nil, err
	}
	testing, closeTesting, err := readSet(mcc.Context(), mcc.logger, mcc.testInput, training.Domain(), false)
	if err != nil {
		closeTraining()
		return nil, nil, nil, errors.Wrap(err, "reading testing set")
	}
	mcc.Logf("Read testing set: %s", describe(mcc.Context(), testing))
	return training, testing, func() {
		closeTesting()
		closeTraining()
	}, nil
}

/*
options returns the options to grow models with, and a closer that
drops the nodes stored on redis, if any.
*/
func (mcc *modelCmdConfig) options(d *feature.Domain) ([]canopy.Option, closer, error) {
	opts := []canopy.Option{
		canopy.WithSeed(mcc.seed),
		canopy.WithWorkers(mcc.workers),
		canopy.WithLogger(mcc.Zap()),
	}
	if mcc.treeWorkers > 0 {
		opts = append(opts, canopy.WithTreeWorkers(mcc.treeWorkers))
	}
	if mcc.redisAddr == "" {
		return opts, func() {}, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     mcc.redisAddr,
		Password: mcc.run.Redis.Password,
		DB:       mcc.run.Redis.DB,
	})
	err := rc.Ping().Err()
	if err != nil {
		rc.Close()
		return nil, nil, errors.Wrapf(err, "connecting to redis at %s", mcc.redisAddr)
	}
	prefix := fmt.Sprintf("%s:%d", mcc.run.Redis.Prefix, time.Now().UnixNano())
	mcc.Logf("Growing trees on redis at %s under %s", mcc.redisAddr, prefix)
	var trees, queues int64
	opts = append(opts, canopy.WithNodeStore(func(ctx context.Context) (tree.NodeStore, error) {
		n := atomic.AddInt64(&trees, 1)
		return redisstore.New(rc, fmt.Sprintf("%s:%d", prefix, n), redisstore.NewJSONNodeEncodeDecoder(d)), nil
	}))
	opts = append(opts, canopy.WithQueue(func(ctx context.Context, s dataset.Dataset, ns tree.NodeStore) (queue.Queue, error) {
		n := atomic.AddInt64(&queues, 1)
		id := fmt.Sprintf("%s:queue:%d", prefix, n)
		return redisq.New(id, rc, mcc.run.Redis.TaskMaxRun, redisLockTTL, queuejson.New(s, ns)), nil
	}))
	return opts, func() {
		err := redisstore.Drop(context.Background(), rc, prefix)
		if err != nil {
			mcc.Logf("Dropping nodes from redis: %v", err)
		}
		rc.Close()
	}, nil
}

/*
evaluate tests the classifier against the testing set and prints its
confusion matrix and performance report on STDOUT.
*/
func (mcc *modelCmdConfig) evaluate(name string, c canopy.Classifier, testing dataset.Dataset) error {
	count, err := testing.Count(mcc.Context())
	if err != nil {
		return errors.Wrap(err, "counting testing set samples")
	}
	mcc.Logf("Testing %s against testing set with %d samples...", name, count)
	m, err := canopy.Evaluate(mcc.Context(), c, testing)
	if err != nil {
		return errors.Wrapf(err, "testing %s", name)
	}
	fmt.Printf("%s confusion matrix:\n%v", name, m)
	return report.New(m).Render(os.Stdout)
}

func (mcc *modelCmdConfig) printTree(ctx context.Context, name string, t *tree.Tree) {
	if !mcc.print {
		return
	}
	nodes, leaves, err := t.Count(ctx)
	if err == nil {
		depth, _ := t.Depth(ctx)
		fmt.Printf("%s: %d nodes, %d leaves, depth %d\n", name, nodes, leaves, depth)
	}
	fmt.Print(t)
}
