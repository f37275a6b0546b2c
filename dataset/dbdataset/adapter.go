package dbdataset

import (
	"context"

	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

/*
Adapter is an interface providing the methods
needed to implement a Set with a database backend.

Raw samples are int slices holding the label of the
sample followed by its value for each feature column,
in the order the columns are given.
*/
type Adapter interface {
	ColumnName(string) (string, error)

	CreateSampleTable(ctx context.Context, featureColumns []string) error

	AddSamples(ctx context.Context, rawSamples [][]int, featureColumns []string) (int, error)
	IterateOnSamples(ctx context.Context, criteria []*FeatureCriterion, featureColumns []string, lambda func(int, []int) (bool, error)) error
	CountSamples(context.Context, []*FeatureCriterion) (int, error)

	// CountLabels returns the number of samples per label
	CountLabels(context.Context, []*FeatureCriterion) (map[int]int, error)
	// CountValueLabels returns the number of samples per value of
	// the given column and label
	CountValueLabels(ctx context.Context, featureColumn string, criteria []*FeatureCriterion) (map[int]map[int]int, error)

	Close() error
}

/*
FeatureCriterion are used to represent
feature.Criterion on SQL DB-backed
sets, they translate to an equality condition
on an SQL SELECT statement's WHERE clause on
a samples table.
*/
type FeatureCriterion struct {
	// FeatureColumn is the column name for the feature
	// the criterion is applying the restriction to.
	FeatureColumn string
	// Value is the value samples must have on the column
	Value int
}

/*
ColumnNameFunc is a function that takes the name of a
feature and returns column name for it or an error if
the name could not be transformed.
*/
type ColumnNameFunc func(string) (string, error)

/*
NewFeatureCriterion takes a feature.Criterion and a ColumnNameFunc and
returns the FeatureCriterion equivalent to the given feature.Criterion
or an error if the ColumnNameFunc cannot provide a name for the
feature of the criterion.
*/
func NewFeatureCriterion(fc feature.Criterion, cnf ColumnNameFunc) (*FeatureCriterion, error) {
	columnName, err := cnf(fc.Feature().Name())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot obtain column name for feature '%s'", fc.Feature().Name())
	}
	return &FeatureCriterion{columnName, fc.Value()}, nil
}
