package feature

import "fmt"

/*
Feature represents a categorical attribute of the samples. It is
identified by its position in the attribute vector of a sample and
can take any integer value in [0, Size()).
*/
type Feature struct {
	name  string
	index int
	size  int
}

/*
New takes the 0-based index of an attribute and the size of its
domain and returns a feature for it. The feature is named after its
1-based position, as in a1, a2...
*/
func New(index, size int) *Feature {
	return &Feature{fmt.Sprintf("a%d", index+1), index, size}
}

/*
NewNamed behaves like New but sets the given name on the feature.
*/
func NewNamed(name string, index, size int) *Feature {
	return &Feature{name, index, size}
}

/*
Name returns a string with the name of the feature
*/
func (f *Feature) Name() string {
	return f.name
}

// Index returns the 0-based position of the feature in attribute vectors.
func (f *Feature) Index() int {
	return f.index
}

// Size returns the number of values the feature can take.
func (f *Feature) Size() int {
	return f.size
}

/*
Valid receives a value and returns a boolean and an error. When the
value is in the domain of the feature the method returns true and nil.
Otherwise it returns false and an error describing the reason.
*/
func (f *Feature) Valid(value int) (bool, error) {
	if value < 0 || value >= f.size {
		return false, fmt.Errorf("feature %s got value %d out of domain [0, %d)", f.name, value, f.size)
	}
	return true, nil
}

func (f *Feature) String() string {
	return f.name
}

/*
Domain describes the shape of a dataset: the number of class labels
(labels are numbered 1..Labels()) and the features of its samples in
attribute vector order.
*/
type Domain struct {
	labels   int
	features []*Feature
}

/*
NewDomain takes a label count and a slice with the domain size of each
attribute and returns the Domain describing them.
*/
func NewDomain(labels int, sizes []int) *Domain {
	features := make([]*Feature, len(sizes))
	for i, s := range sizes {
		features[i] = New(i, s)
	}
	return &Domain{labels, features}
}

// Labels returns the number of class labels.
func (d *Domain) Labels() int {
	return d.labels
}

/*
Features returns a new slice with the features of the domain ordered
by index. Callers may reorder or truncate it freely.
*/
func (d *Domain) Features() []*Feature {
	return append([]*Feature(nil), d.features...)
}

// Feature returns the feature at the given index, or nil if there is none.
func (d *Domain) Feature(index int) *Feature {
	if index < 0 || index >= len(d.features) {
		return nil
	}
	return d.features[index]
}

// Sizes returns the domain size of every attribute.
func (d *Domain) Sizes() []int {
	sizes := make([]int, len(d.features))
	for i, f := range d.features {
		sizes[i] = f.size
	}
	return sizes
}

/*
Covers returns whether samples valid for the other domain are
also valid for this one: it has at least as many labels and
attributes, and no attribute domain is smaller.
*/
func (d *Domain) Covers(other *Domain) bool {
	if other.labels > d.labels || len(other.features) > len(d.features) {
		return false
	}
	for i, f := range other.features {
		if f.size > d.features[i].size {
			return false
		}
	}
	return true
}

func (d *Domain) String() string {
	return fmt.Sprintf("{labels: %d, attributes: %v}", d.labels, d.Sizes())
}

/*
NewNamedDomain takes a label count and the features of the domain,
which must be ordered by index, and returns the Domain describing them.
*/
func NewNamedDomain(labels int, features []*Feature) *Domain {
	return &Domain{labels, append([]*Feature(nil), features...)}
}
