package tree

import (
	"github.com/pbanos/canopy/feature"
)

/*
Node is a node of the tree. It is a leaf when it has no SubtreeFeature,
and an internal node with exactly SubtreeFeature.Size() children otherwise.
*/
type Node struct {
	// An ID to identify the node
	ID string
	// The ID for the parent of the node in the tree
	ParentID string
	// The IDs of the nodes directly under this node, the one at
	// position v being the subtree for samples with value v on
	// SubtreeFeature.
	SubtreeIDs []string
	// The label predicted for samples reaching this node: the majority
	// label of the training samples that reached it, or the one inherited
	// from its parent when none did.
	Prediction int
	// The number of training samples that reached this node.
	Weight int
	// The constraint this node imposes on samples: the criterion that
	// applied to the parent node's set produces this node's set. It is
	// nil for the root.
	FeatureCriterion feature.Criterion
	// The feature on which nodes directly under this node impose a
	// constraint, nil for leaves.
	SubtreeFeature *feature.Feature
}

// IsLeaf returns whether the node has no subtrees.
func (n *Node) IsLeaf() bool {
	return n.SubtreeFeature == nil
}
