package queue

import (
	"fmt"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
)

/*
Task is the development of one tree node: deciding whether it is a leaf
and, if not, the feature it splits on and the tasks of its children.
*/
type Task struct {
	Node *tree.Node
	// Training samples that reach the node.
	Dataset dataset.Dataset
	// Features not used by the node's ancestors.
	AvailableFeatures []*feature.Feature
	// Majority label of the parent, predicted when Dataset is empty.
	Inherited int
	// Seed of the node's random stream, so that its development does
	// not depend on the worker or the order it runs in.
	Seed int64
}

// ID returns the ID of the task's node, which identifies the task.
func (t *Task) ID() string {
	return t.Node.ID
}

func (t *Task) String() string {
	return fmt.Sprintf("{Task %s features:%d seed:%d}", t.Node.ID, len(t.AvailableFeatures), t.Seed)
}
