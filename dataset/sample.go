package dataset

import (
	"fmt"

	"github.com/pbanos/canopy/feature"
)

/*
Sample represents a labeled item from which to learn how to classify
others, or an item to classify.

Its label is an integer in [1, labels] and its values an attribute
vector with one categorical value per feature of the domain.
Samples are immutable once built.
*/
type Sample struct {
	label  int
	values []int
}

/*
NewSample takes a label and an attribute vector and returns a sample.
The sample keeps the given slice, which callers must not modify
afterwards.
*/
func NewSample(label int, values []int) *Sample {
	return &Sample{label, values}
}

// Label returns the class label of the sample.
func (s *Sample) Label() int {
	return s.label
}

/*
Values returns the attribute vector of the sample. The returned
slice is shared and must not be modified.
*/
func (s *Sample) Values() []int {
	return s.values
}

/*
ValueFor returns the value of the sample for the given feature, or an
error if the attribute vector is too short to hold it.
*/
func (s *Sample) ValueFor(f *feature.Feature) (int, error) {
	if f.Index() >= len(s.values) {
		return 0, fmt.Errorf("sample has %d attributes, no value for feature %s", len(s.values), f.Name())
	}
	return s.values[f.Index()], nil
}

func (s *Sample) String() string {
	return fmt.Sprintf("[%d %v]", s.label, s.values)
}
