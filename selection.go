package canopy

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

/*
Selector is an interface wrapping the Select method, that decides which
of the features available on a node are evaluated to split it.

The Select method takes a context, the features available on the node and
the random stream of the node, and returns the candidate features. It must
not modify the given slice.
*/
type Selector interface {
	Select(ctx context.Context, available []*feature.Feature, rnd *rand.Rand) ([]*feature.Feature, error)
}

/*
SelectorFunc wraps a function with the Select method signature to implement
the Selector interface
*/
type SelectorFunc func(ctx context.Context, available []*feature.Feature, rnd *rand.Rand) ([]*feature.Feature, error)

/*
Select takes a context.Context, the available features and a random stream
and invokes the SelectorFunc with those parameters to return its result.
*/
func (sf SelectorFunc) Select(ctx context.Context, available []*feature.Feature, rnd *rand.Rand) ([]*feature.Feature, error) {
	return sf(ctx, available, rnd)
}

/*
ExhaustiveSelector returns a Selector that makes every available feature
a candidate, as plain decision trees do.
*/
func ExhaustiveSelector() Selector {
	return SelectorFunc(func(ctx context.Context, available []*feature.Feature, rnd *rand.Rand) ([]*feature.Feature, error) {
		return available, nil
	})
}

/*
RandomSubsetSelector returns a Selector that draws, without replacement,
SubsetSize(n) of the n available features using the node's random stream,
as the members of a random forest do. Every node draws its own subset.
*/
func RandomSubsetSelector() Selector {
	return SelectorFunc(func(ctx context.Context, available []*feature.Feature, rnd *rand.Rand) ([]*feature.Feature, error) {
		features := append([]*feature.Feature(nil), available...)
		shuffleFeatures(features, rnd)
		return features[:SubsetSize(len(features))], nil
	})
}

/*
SubsetSize returns the number of candidate features drawn from n available
ones by RandomSubsetSelector: the square root of n rounded to the nearest
integer, and at least 1 when n is positive.
*/
func SubsetSize(n int) int {
	if n <= 0 {
		return 0
	}
	k := int(math.Round(math.Sqrt(float64(n))))
	if k < 1 {
		k = 1
	}
	return k
}

/*
bestPartition evaluates the candidates in ascending index order and returns the
partition for the last one whose reduction is greater or equal than the best
seen so far, starting from 0. Should rounding make every reduction negative,
the first candidate is used.
*/
func bestPartition(ctx context.Context, s dataset.Dataset, candidates []*feature.Feature) (*Partition, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no candidate features to split on")
	}
	sorted := append([]*feature.Feature(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index() < sorted[j].Index()
	})
	selected := candidates[0]
	var best, selectedReduction float64
	var found bool
	for _, f := range sorted {
		r, err := Reduction(ctx, s, f)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluating split on %s", f.Name())
		}
		if r >= best {
			best = r
			selected = f
			selectedReduction = r
			found = true
		} else if !found && f == selected {
			selectedReduction = r
		}
	}
	return newPartition(ctx, s, selected, selectedReduction)
}

func shuffleFeatures(features []*feature.Feature, r *rand.Rand) {
	for len(features) > 0 {
		n := len(features)
		randIndex := r.Intn(n)
		features[n-1], features[randIndex] = features[randIndex], features[n-1]
		features = features[:n-1]
	}
}
