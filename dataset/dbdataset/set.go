/*
Package dbdataset provides a dataset.Dataset implementation on top of
a database, accessed through an Adapter. Subsetting never reads samples:
it only narrows the conditions of the queries sent to the database.
*/
package dbdataset

import (
	"context"
	"fmt"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

/*
Set is a dataset.Dataset to which samples can be added.

Its Write takes a slice of samples and adds them to the dataset,
returning the number of samples added and an error if any occurs.
Its Read streams the samples of the set.
*/
type Set interface {
	dataset.Dataset
	Write(context.Context, []*dataset.Sample) (int, error)
	Read(context.Context) (<-chan *dataset.Sample, <-chan error)
}

type dbSet struct {
	db       Adapter
	domain   *feature.Domain
	columns  []string
	criteria []feature.Criterion
	where    []*FeatureCriterion
}

/*
Open takes an Adapter to a db backend and a domain and returns a Set
backed by the given adapter or an error if the features of the domain
cannot be mapped to columns.

This function expects the adapter to have the samples table
already created.
*/
func Open(ctx context.Context, dbAdapter Adapter, d *feature.Domain) (Set, error) {
	columns, err := featureColumns(dbAdapter, d)
	if err != nil {
		return nil, err
	}
	return &dbSet{db: dbAdapter, domain: d, columns: columns}, nil
}

/*
Create takes an Adapter and a domain and returns a Set backed by the
given adapter or an error.

This function will ensure that the samples table is created on the
database.
*/
func Create(ctx context.Context, dbAdapter Adapter, d *feature.Domain) (Set, error) {
	columns, err := featureColumns(dbAdapter, d)
	if err != nil {
		return nil, err
	}
	err = dbAdapter.CreateSampleTable(ctx, columns)
	if err != nil {
		return nil, err
	}
	return &dbSet{db: dbAdapter, domain: d, columns: columns}, nil
}

func (ss *dbSet) Domain() *feature.Domain {
	return ss.domain
}

func (ss *dbSet) Count(ctx context.Context) (int, error) {
	return ss.db.CountSamples(ctx, ss.where)
}

func (ss *dbSet) Samples(ctx context.Context) ([]*dataset.Sample, error) {
	var samples []*dataset.Sample
	err := ss.iterate(ctx, func(s *dataset.Sample) (bool, error) {
		samples = append(samples, s)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (ss *dbSet) CountLabels(ctx context.Context) ([]int, error) {
	counts, err := ss.db.CountLabels(ctx, ss.where)
	if err != nil {
		return nil, err
	}
	result := make([]int, ss.domain.Labels())
	for l, c := range counts {
		if l < 1 || l > len(result) {
			return nil, dataset.DataError(fmt.Sprintf("stored sample has invalid label %d", l))
		}
		result[l-1] = c
	}
	return result, nil
}

func (ss *dbSet) CountValueLabels(ctx context.Context, f *feature.Feature) ([][]int, error) {
	column, err := ss.db.ColumnName(f.Name())
	if err != nil {
		return nil, errors.Wrapf(err, "invalid feature %s", f.Name())
	}
	counts, err := ss.db.CountValueLabels(ctx, column, ss.where)
	if err != nil {
		return nil, err
	}
	result := make([][]int, f.Size())
	for v := range result {
		result[v] = make([]int, ss.domain.Labels())
	}
	for v, labelCounts := range counts {
		if ok, _ := f.Valid(v); !ok {
			return nil, dataset.DataError(fmt.Sprintf("stored sample has invalid value %d for %s", v, f.Name()))
		}
		for l, c := range labelCounts {
			if l < 1 || l > ss.domain.Labels() {
				return nil, dataset.DataError(fmt.Sprintf("stored sample has invalid label %d", l))
			}
			result[v][l-1] = c
		}
	}
	return result, nil
}

func (ss *dbSet) SubsetWith(ctx context.Context, fc feature.Criterion) (dataset.Dataset, error) {
	rfc, err := NewFeatureCriterion(fc, ss.db.ColumnName)
	if err != nil {
		return nil, err
	}
	criteria := make([]feature.Criterion, 0, len(ss.criteria)+1)
	criteria = append(criteria, ss.criteria...)
	criteria = append(criteria, fc)
	where := make([]*FeatureCriterion, 0, len(ss.where)+1)
	where = append(where, ss.where...)
	where = append(where, rfc)
	return &dbSet{
		db:       ss.db,
		domain:   ss.domain,
		columns:  ss.columns,
		criteria: criteria,
		where:    where,
	}, nil
}

func (ss *dbSet) Criteria(ctx context.Context) ([]feature.Criterion, error) {
	return ss.criteria, nil
}

func (ss *dbSet) Write(ctx context.Context, samples []*dataset.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	err := dataset.Validate(ss.domain, samples)
	if err != nil {
		return 0, err
	}
	rawSamples := make([][]int, 0, len(samples))
	for _, s := range samples {
		rs := make([]int, 0, len(ss.columns)+1)
		rs = append(rs, s.Label())
		rs = append(rs, s.Values()...)
		for len(rs) < len(ss.columns)+1 {
			rs = append(rs, 0)
		}
		rawSamples = append(rawSamples, rs)
	}
	return ss.db.AddSamples(ctx, rawSamples, ss.columns)
}

func (ss *dbSet) Read(ctx context.Context) (<-chan *dataset.Sample, <-chan error) {
	sampleStream := make(chan *dataset.Sample)
	errStream := make(chan error, 1)
	go func() {
		err := ss.iterate(ctx, func(s *dataset.Sample) (bool, error) {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case sampleStream <- s:
			}
			return true, nil
		})
		if err != nil {
			errStream <- err
		}
		close(errStream)
		close(sampleStream)
	}()
	return sampleStream, errStream
}

func (ss *dbSet) iterate(ctx context.Context, lambda func(*dataset.Sample) (bool, error)) error {
	return ss.db.IterateOnSamples(ctx, ss.where, ss.columns, func(_ int, rs []int) (bool, error) {
		return lambda(dataset.NewSample(rs[0], rs[1:]))
	})
}

func featureColumns(dbAdapter Adapter, d *feature.Domain) ([]string, error) {
	features := d.Features()
	columns := make([]string, 0, len(features))
	columnFeatures := make(map[string]*feature.Feature)
	for _, f := range features {
		column, err := dbAdapter.ColumnName(f.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "invalid feature %s", f.Name())
		}
		if of, ok := columnFeatures[column]; ok {
			return nil, errors.Errorf("%s and %s feature names translate to the same column name %s", f.Name(), of.Name(), column)
		}
		columnFeatures[column] = f
		columns = append(columns, column)
	}
	return columns, nil
}
