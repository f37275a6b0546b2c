package canopy

import (
	"context"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
)

/*
Gini takes the label counts of a subset and returns its Gini impurity,
1 - Σ p_i², p_i being the share of samples of label i. An empty subset
has impurity 0.
*/
func Gini(counts []int) float64 {
	var total int
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0.0
	}
	result := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		result -= p * p
	}
	return result
}

/*
SplitImpurity takes the attribute-value/class table of a split, one row of
label counts per value of the split feature, and returns the Gini impurity
of each row weighted by its share of the samples. Empty rows contribute
nothing.
*/
func SplitImpurity(avc [][]int) float64 {
	sums := make([]int, len(avc))
	var total int
	for v, row := range avc {
		for _, c := range row {
			sums[v] += c
		}
		total += sums[v]
	}
	if total == 0 {
		return 0.0
	}
	var result float64
	for v, row := range avc {
		if sums[v] == 0 {
			continue
		}
		result += Gini(row) * float64(sums[v]) / float64(total)
	}
	return result
}

/*
Reduction takes a context.Context, a dataset and a feature and returns the
impurity reduction obtained by splitting the dataset on the feature: the Gini
impurity of the dataset minus the weighted impurity of the split. It is 0 for
an empty dataset.
*/
func Reduction(ctx context.Context, s dataset.Dataset, f *feature.Feature) (float64, error) {
	counts, err := s.CountLabels(ctx)
	if err != nil {
		return 0.0, err
	}
	avc, err := s.CountValueLabels(ctx, f)
	if err != nil {
		return 0.0, err
	}
	return Gini(counts) - SplitImpurity(avc), nil
}

/*
Partition represents a partition of a dataset according to a feature
into one subset per value of the feature, with the impurity reduction
it achieves.
*/
type Partition struct {
	Feature   *feature.Feature
	Subsets   []dataset.Dataset
	reduction float64
}

/*
NewPartition takes a context.Context, a dataset and a feature and returns the
partition of the dataset for the given feature.
*/
func NewPartition(ctx context.Context, s dataset.Dataset, f *feature.Feature) (*Partition, error) {
	r, err := Reduction(ctx, s, f)
	if err != nil {
		return nil, err
	}
	return newPartition(ctx, s, f, r)
}

func newPartition(ctx context.Context, s dataset.Dataset, f *feature.Feature, reduction float64) (*Partition, error) {
	subsets, err := dataset.Partition(ctx, s, f)
	if err != nil {
		return nil, err
	}
	return &Partition{f, subsets, reduction}, nil
}

// Reduction returns the impurity reduction achieved by the partition.
func (p *Partition) Reduction() float64 {
	return p.reduction
}
