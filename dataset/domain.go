package dataset

import (
	"github.com/pbanos/canopy/feature"
)

/*
DeriveDomain takes a slice of samples and returns the domain they
define: the highest label seen is the label count, the longest
attribute vector gives the attribute count and the domain size of
each attribute is its highest observed value plus one.
It returns a DataError if the samples define fewer than 2 labels
or no attributes, or hold negative labels or values.
*/
func DeriveDomain(samples []*Sample) (*feature.Domain, error) {
	var labels int
	var sizes []int
	for i, s := range samples {
		if s.label < 1 {
			return nil, dataErrorf("sample %d has invalid label %d", i, s.label)
		}
		if s.label > labels {
			labels = s.label
		}
		for len(sizes) < len(s.values) {
			sizes = append(sizes, 1)
		}
		for j, v := range s.values {
			if v < 0 {
				return nil, dataErrorf("sample %d has invalid value %d for attribute %d", i, v, j+1)
			}
			if v+1 > sizes[j] {
				sizes[j] = v + 1
			}
		}
	}
	if labels < 2 || len(sizes) < 1 {
		return nil, dataErrorf("training data seems to be corrupted: %d labels and %d attributes", labels, len(sizes))
	}
	return feature.NewDomain(labels, sizes), nil
}

/*
CheckCompatible takes the domain of training data and the domain of
test data and returns a DataError if the test domain has more labels,
more attributes or any larger attribute domain than the training one.
*/
func CheckCompatible(training, test *feature.Domain) error {
	if test.Labels() > training.Labels() {
		return dataErrorf("test data has %d labels, training data only %d", test.Labels(), training.Labels())
	}
	trs, ts := training.Sizes(), test.Sizes()
	if len(ts) > len(trs) {
		return dataErrorf("test data has %d attributes, training data only %d", len(ts), len(trs))
	}
	for i, s := range ts {
		if s > trs[i] {
			return dataErrorf("test data has %d values for attribute %d, training data only %d", s, i+1, trs[i])
		}
	}
	return nil
}

/*
Validate checks the given samples against a domain and returns a
DataError describing the first problem found: a domain with fewer than
2 labels or no attributes, a label outside [1, labels], an attribute
vector of the wrong length or a value outside its attribute domain.
*/
func Validate(d *feature.Domain, samples []*Sample) error {
	if d.Labels() < 2 {
		return dataErrorf("domain has %d labels, at least 2 are required", d.Labels())
	}
	features := d.Features()
	if len(features) < 1 {
		return dataErrorf("domain has no attributes")
	}
	for i, s := range samples {
		if s.label < 1 || s.label > d.Labels() {
			return dataErrorf("sample %d has label %d out of [1, %d]", i, s.label, d.Labels())
		}
		if len(s.values) != len(features) {
			return dataErrorf("sample %d has %d attributes, expected %d", i, len(s.values), len(features))
		}
		for j, f := range features {
			if _, err := f.Valid(s.values[j]); err != nil {
				return dataErrorf("sample %d: %v", i, err)
			}
		}
	}
	return nil
}

/*
Majority takes label counts indexed by label-1 and returns the label
with the highest count. Ties go to the smallest label. It returns 0
when all counts are 0.
*/
func Majority(counts []int) int {
	var label, max int
	for i, c := range counts {
		if c > max {
			label, max = i+1, c
		}
	}
	return label
}
