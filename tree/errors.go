package tree

import "fmt"

// NotTrainedError is the error returned when predicting with a model
// that has not been trained.
type NotTrainedError string

/*
ErrNotTrained is the error returned by the Predict method of a tree
that has no root node, either because it was never grown or because
growing it did not complete.
*/
const ErrNotTrained = NotTrainedError("model is not trained")

func (nte NotTrainedError) Error() string {
	return string(nte)
}

/*
IndexError is the error returned when a sample being predicted has a
value on the feature of an internal node for which the node has no
subtree, or no value for that feature at all.
*/
type IndexError struct {
	Feature string
	Value   int
	Size    int
	Err     error
}

func (ie *IndexError) Error() string {
	if ie.Err != nil {
		return fmt.Sprintf("no subtree for sample on feature %s: %v", ie.Feature, ie.Err)
	}
	return fmt.Sprintf("no subtree for value %d of feature %s, expected a value in [0, %d)", ie.Value, ie.Feature, ie.Size)
}

func (ie *IndexError) Unwrap() error {
	return ie.Err
}
