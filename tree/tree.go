package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

// Tree represents a classification tree. It is composed of a
// NodeStore where all its nodes are stored, the id for the
// root node of the tree and the domain of the samples it
// classifies.
type Tree struct {
	NodeStore
	RootID string
	Domain *feature.Domain
}

// New takes the ID for the root Node, a NodeStore and a domain and
// returns a tree composed of the nodes in the NodeStore connected to the
// node with the given root ID that classifies samples of the domain.
func New(rootID string, nodeStore NodeStore, d *feature.Domain) *Tree {
	return &Tree{nodeStore, rootID, d}
}

/*
Predict takes a sample and returns the label predicted by the tree for it.
It returns ErrNotTrained if the tree has no root node, an *IndexError if
the sample has no usable value for the feature of an internal node on its
path, or an error if nodes cannot be retrieved from the node store.
Predict does not modify the tree and is safe for concurrent use.
*/
func (t *Tree) Predict(ctx context.Context, s feature.Sample) (int, error) {
	if t == nil || t.NodeStore == nil || t.RootID == "" {
		return 0, ErrNotTrained
	}
	n, err := t.Get(ctx, t.RootID)
	if err != nil {
		return 0, errors.Wrapf(err, "predicting sample: retrieving node %v", t.RootID)
	}
	if n == nil {
		return 0, ErrNotTrained
	}
	for !n.IsLeaf() {
		f := n.SubtreeFeature
		v, err := s.ValueFor(f)
		if err != nil {
			return 0, &IndexError{Feature: f.Name(), Value: v, Size: len(n.SubtreeIDs), Err: err}
		}
		if v < 0 || v >= len(n.SubtreeIDs) {
			return 0, &IndexError{Feature: f.Name(), Value: v, Size: len(n.SubtreeIDs)}
		}
		id := n.SubtreeIDs[v]
		n, err = t.Get(ctx, id)
		if err != nil {
			return 0, errors.Wrapf(err, "predicting sample: retrieving node %v", id)
		}
		if n == nil {
			return 0, errors.Errorf("predicting sample: node %v not found", id)
		}
	}
	return n.Prediction, nil
}

// Traverse takes a context, bottomup boolean and an
// error-returning function that takes a context and a node
// as parameters, and goes through the tree running the
// function with the context and every traversed node.
// Traverse will call the function with a parent node before
// calling it for its children if bottomup is false, and
// call it after its children if bottomup is true.
// If the given context times out or is cancelled, the context
// error is returned. If a node cannot be retrieved from the
// tree's node store, the obtained error is returned. If the
// call to the function returns an error, the traversing is
// aborted and the error is returned. Otherwise, when the
// traversing is over, nil is returned.
func (t *Tree) Traverse(ctx context.Context, bottomup bool, f func(context.Context, *Node) error) error {
	n, err := t.NodeStore.Get(ctx, t.RootID)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotTrained
	}
	return t.traverse(ctx, n, bottomup, f)
}

func (t *Tree) traverse(ctx context.Context, n *Node, bottomup bool, f func(context.Context, *Node) error) error {
	err := ctx.Err()
	if err != nil {
		return err
	}
	if !bottomup {
		err = f(ctx, n)
	}
	if err != nil {
		return err
	}
	for _, snID := range n.SubtreeIDs {
		sn, err := t.NodeStore.Get(ctx, snID)
		if err != nil {
			return err
		}
		if sn == nil {
			return errors.Errorf("node %v not found", snID)
		}
		err = t.traverse(ctx, sn, bottomup, f)
		if err != nil {
			return err
		}
	}
	if bottomup {
		err = f(ctx, n)
	}
	return err
}

/*
Depth returns the depth of the tree: 0 for a single leaf, and one more
than the deepest of its subtrees for an internal node.
*/
func (t *Tree) Depth(ctx context.Context) (int, error) {
	depths := make(map[string]int)
	err := t.Traverse(ctx, true, func(ctx context.Context, n *Node) error {
		d := 0
		for _, id := range n.SubtreeIDs {
			if depths[id]+1 > d {
				d = depths[id] + 1
			}
			delete(depths, id)
		}
		depths[n.ID] = d
		return nil
	})
	if err != nil {
		return 0, err
	}
	return depths[t.RootID], nil
}

/*
Count returns the number of nodes and the number of leaves of the
tree.
*/
func (t *Tree) Count(ctx context.Context) (nodes int, leaves int, err error) {
	err = t.Traverse(ctx, false, func(ctx context.Context, n *Node) error {
		nodes++
		if n.IsLeaf() {
			leaves++
		}
		return nil
	})
	return
}

func (t *Tree) String() string {
	if t == nil || t.NodeStore == nil || t.RootID == "" {
		return "<untrained>\n"
	}
	return t.subtreeString(t.RootID)
}

func (t *Tree) subtreeString(nodeID string) string {
	n, err := t.NodeStore.Get(context.TODO(), nodeID)
	if err != nil {
		return fmt.Sprintf("ERROR: %s\n", err.Error())
	}
	if n == nil {
		return fmt.Sprintf("ERROR: node %s not found\n", nodeID)
	}
	var result strings.Builder
	if n.FeatureCriterion != nil {
		fmt.Fprintf(&result, "= %d ", n.FeatureCriterion.Value())
	}
	if n.IsLeaf() {
		fmt.Fprintf(&result, "-> [%d] (%d)\n", n.Prediction, n.Weight)
	} else {
		fmt.Fprintf(&result, "#%s (%d)\n", n.SubtreeFeature.Name(), n.Weight)
	}
	for i, subtreeID := range n.SubtreeIDs {
		for j, line := range strings.Split(t.subtreeString(subtreeID), "\n") {
			if len(line) == 0 {
				continue
			}
			switch {
			case j == 0:
				fmt.Fprintf(&result, "|__%s\n", line)
			case i == len(n.SubtreeIDs)-1:
				fmt.Fprintf(&result, "   %s\n", line)
			default:
				fmt.Fprintf(&result, "|  %s\n", line)
			}
		}
	}
	return result.String()
}
