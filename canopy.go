/*
Package canopy grows classification trees and random forests from
labeled categorical data.

Trees are grown by workers consuming tasks from a queue.Queue: each task
develops one node of the tree, stored in a tree.NodeStore, and yields the
tasks for its children. Every task carries the seed of its own random
stream, so a tree grown from a given seed has the same structure no matter
how many workers grow it or in which order they pick its tasks.
*/
package canopy

import (
	"context"
	"math/rand"
	"time"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/queue"
	"github.com/pbanos/canopy/tree"
	"github.com/pkg/errors"
)

// Seed takes a context, a dataset, a seed, a queue and a node store
// and sets everything up so that workers that consume from the
// queue afterwards grow a tree that classifies samples of the
// dataset's domain according to the training data on the dataset.
// Specifically it will create the root node of the tree on the
// node store and push a task to branch it out on the queue, with
// every feature of the domain available and the given seed.
// The function returns the tree that can be grown or an error
// if the node cannot be created on the store, or the task pushed
// to the queue (in the amount of time allowed by the given
// context).
func Seed(ctx context.Context, s dataset.Dataset, seed int64, q queue.Queue, ns tree.NodeStore) (*tree.Tree, error) {
	n := &tree.Node{}
	err := ns.Create(ctx, n)
	if err != nil {
		return nil, err
	}
	task := &queue.Task{Node: n, Dataset: s, AvailableFeatures: s.Domain().Features(), Seed: seed}
	t := tree.New(n.ID, ns, s.Domain())
	err = q.Push(ctx, task)
	if err != nil {
		ns.Delete(ctx, n)
		return nil, err
	}
	return t, nil
}

// BranchOut takes a context, a task, a tree and a selector,
// develops the node in the task using the task's dataset and available
// features and returns a set of tasks to develop the resulting children
// nodes or an error.
//
// The node becomes a leaf if no features are available, if its dataset
// is empty (predicting the label inherited from its parent) or if all
// its samples share a label, checked in that order. Otherwise it is split
// on the candidate feature, as returned by the selector, with the highest
// impurity reduction, getting one child per value of the feature.
func BranchOut(ctx context.Context, task *queue.Task, t *tree.Tree, sel Selector) (tasks []*queue.Task, e error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts, err := task.Dataset.CountLabels(ctx)
	if err != nil {
		return nil, err
	}
	n := task.Node
	n.Weight = 0
	for _, c := range counts {
		n.Weight += c
	}
	n.Prediction = task.Inherited
	if n.Weight > 0 {
		n.Prediction = dataset.Majority(counts)
	}
	defer func() {
		err := t.NodeStore.Store(ctx, n)
		if e == nil {
			e = err
		}
	}()
	if len(task.AvailableFeatures) == 0 || n.Weight == 0 || counts[n.Prediction-1] == n.Weight {
		return nil, nil
	}
	rnd := rand.New(rand.NewSource(task.Seed))
	candidates, err := sel.Select(ctx, task.AvailableFeatures, rnd)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting candidates for node %v", n.ID)
	}
	p, err := bestPartition(ctx, task.Dataset, candidates)
	if err != nil {
		return nil, err
	}
	stAvailableFeatures := make([]*feature.Feature, 0, len(task.AvailableFeatures)-1)
	for _, f := range task.AvailableFeatures {
		if f != p.Feature {
			stAvailableFeatures = append(stAvailableFeatures, f)
		}
	}
	stNodeIDs := make([]string, 0, len(p.Subsets))
	tasks = make([]*queue.Task, 0, len(p.Subsets))
	for v, ss := range p.Subsets {
		sn := &tree.Node{ParentID: n.ID, FeatureCriterion: feature.NewCriterion(p.Feature, v)}
		err = t.NodeStore.Create(ctx, sn)
		if err != nil {
			return nil, err
		}
		stNodeIDs = append(stNodeIDs, sn.ID)
		tasks = append(tasks, &queue.Task{
			Node:              sn,
			Dataset:           ss,
			AvailableFeatures: stAvailableFeatures,
			Inherited:         n.Prediction,
			Seed:              rnd.Int63(),
		})
	}
	n.SubtreeFeature = p.Feature
	n.SubtreeIDs = stNodeIDs
	return tasks, nil
}

// Work takes a context, a tree, a queue, a selector
// and an emptyQueueSleep duration and enters a loop in which
// it:
//   - pulls a task for the queue,
//   - branches its node out into new subnodes using BranchOut
//   - pushes the tasks for the new subnodes into the queue
//   - marks the task as completed on the queue
//
// If at some point no task can be pulled from the queue and
// the sum of tasks running and pending on the queue is 0, the
// worker ends returning nil. If no task can be pulled but the
// sum is not 0, then the worker will sleep for the given
// emptyQueueSleep duration and then retry.
//
// Work will return a non-nil error if the given context
// times out or is cancelled, if BranchOut returns a non-nil
// error or if an operation with the given queue returns a
// non-nil error.
func Work(ctx context.Context, t *tree.Tree, q queue.Queue, sel Selector, emptyQueueSleep time.Duration) error {
	for {
		task, tctx, err := q.Pull(ctx)
		if err != nil {
			return err
		}
		if task == nil {
			p, r, err := q.Count(ctx)
			if err != nil {
				return err
			}
			if r+p == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(emptyQueueSleep):
			}
			continue
		}
		mctx, cancel := mergeCtxCancel(tctx, ctx)
		err = workTask(mctx, task, t, q, sel)
		cancel()
		if err != nil {
			return err
		}
		err = ctx.Err()
		if err != nil {
			return err
		}
	}
	return nil
}

func workTask(ctx context.Context, task *queue.Task, t *tree.Tree, q queue.Queue, sel Selector) error {
	defer func() {
		q.Drop(ctx, task.ID())
	}()
	tasks, err := BranchOut(ctx, task, t, sel)
	if err != nil {
		return err
	}
	for _, st := range tasks {
		err = q.Push(ctx, st)
		if err != nil {
			return err
		}
	}
	return q.Complete(ctx, task.ID())
}

func mergeCtxCancel(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	mctx, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-mctx.Done():
		case <-ctx2.Done():
			cancel()
		}
	}()
	return mctx, cancel
}
