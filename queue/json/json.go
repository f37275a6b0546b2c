/*
Package json encodes the tasks of a queue.Queue as JSON documents, so
that they can be stored outside the process memory.

A task is encoded by reference: the ID of its node, which must be kept
on a tree.NodeStore, and the criteria that define its dataset as a
subset of the dataset the tree is grown on.
*/
package json

import (
	"context"
	"encoding/json"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/queue"
	"github.com/pbanos/canopy/tree"
	"github.com/pkg/errors"
)

/*
TaskEncodeDecoder is an interface for objects
that allow encoding tasks as slices of bytes and
decoding them back to tasks. It is used to
serialize tasks into a representation to store on
redis.
*/
type TaskEncodeDecoder interface {

	//Encode receives a *queue.Task
	// and returns a slice of bytes with the task encoded or an
	//error if the encoding could not be performed for
	//some reason. Its counterpart is Decode.
	Encode(context.Context, *queue.Task) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *queue.Task decoded from the slice of bytes
	//or an error if the decoding could not be performed
	//for some reason.
	Decode(context.Context, []byte) (*queue.Task, error)
}

type jsonEncodeDecoder struct {
	root dataset.Dataset
	ns   tree.NodeStore
}

type jsonCriterion struct {
	Feature int `json:"f"`
	Value   int `json:"v"`
}

type jsonTask struct {
	NodeID            string          `json:"id"`
	AvailableFeatures []int           `json:"fs"`
	Criteria          []jsonCriterion `json:"cs"`
	Inherited         int             `json:"in"`
	Seed              int64           `json:"sd"`
}

/*
New takes the dataset a tree is grown on and the node store holding its
nodes and returns a TaskEncodeDecoder for the tasks growing the tree.
*/
func New(root dataset.Dataset, ns tree.NodeStore) TaskEncodeDecoder {
	return &jsonEncodeDecoder{root, ns}
}

func (jed *jsonEncodeDecoder) Encode(ctx context.Context, t *queue.Task) ([]byte, error) {
	jt := &jsonTask{NodeID: t.ID(), Inherited: t.Inherited, Seed: t.Seed}
	for _, f := range t.AvailableFeatures {
		jt.AvailableFeatures = append(jt.AvailableFeatures, f.Index())
	}
	criteria, err := t.Dataset.Criteria(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "encoding task as json: obtaining dataset criteria")
	}
	rootCriteria, err := jed.root.Criteria(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "encoding task as json: obtaining root dataset criteria")
	}
	for _, c := range criteria {
		if !contains(rootCriteria, c) {
			jt.Criteria = append(jt.Criteria, jsonCriterion{c.Feature().Index(), c.Value()})
		}
	}
	return json.Marshal(jt)
}

func (jed *jsonEncodeDecoder) Decode(ctx context.Context, data []byte) (*queue.Task, error) {
	jt := &jsonTask{}
	err := json.Unmarshal(data, jt)
	if err != nil {
		return nil, errors.Wrap(err, "decoding task from json")
	}
	t := &queue.Task{Inherited: jt.Inherited, Seed: jt.Seed}
	t.Node, err = jed.ns.Get(ctx, jt.NodeID)
	if err != nil {
		return nil, errors.Wrap(err, "decoding json task: getting task node")
	}
	if t.Node == nil {
		return nil, errors.Errorf("decoding json task: could not get node %q from node store", jt.NodeID)
	}
	d := jed.root.Domain()
	for _, i := range jt.AvailableFeatures {
		f := d.Feature(i)
		if f == nil {
			return nil, errors.Errorf("decoding json task: unknown feature %d", i)
		}
		t.AvailableFeatures = append(t.AvailableFeatures, f)
	}
	t.Dataset = jed.root
	for _, jc := range jt.Criteria {
		f := d.Feature(jc.Feature)
		if f == nil {
			return nil, errors.Errorf("decoding json task: criterion on unknown feature %d", jc.Feature)
		}
		t.Dataset, err = t.Dataset.SubsetWith(ctx, feature.NewCriterion(f, jc.Value))
		if err != nil {
			return nil, errors.Wrap(err, "decoding json task: subsetting dataset")
		}
	}
	return t, nil
}

func contains(criteria []feature.Criterion, c feature.Criterion) bool {
	for _, o := range criteria {
		if o.Feature().Index() == c.Feature().Index() && o.Value() == c.Value() {
			return true
		}
	}
	return false
}
