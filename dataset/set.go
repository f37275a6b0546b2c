package dataset

import (
	"context"

	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

/*
Dataset represents a collection of labeled samples over a domain.

Its CountLabels method returns the number of samples of each label,
indexed by label-1.

Its CountValueLabels method returns the attribute-value/class table of
a feature: for each value v of the feature, the number of samples of
each label having value v.

Its SubsetWith method takes a feature.Criterion and returns a subset that only
contains samples that satisfy it.

Its Samples method returns the samples it contains.

Datasets are never modified once built, so they can be shared by
concurrent readers.
*/
type Dataset interface {
	Domain() *feature.Domain
	Count(context.Context) (int, error)
	Samples(context.Context) ([]*Sample, error)
	CountLabels(context.Context) ([]int, error)
	CountValueLabels(context.Context, *feature.Feature) ([][]int, error)
	SubsetWith(context.Context, feature.Criterion) (Dataset, error)
	Criteria(context.Context) ([]feature.Criterion, error)
}

type partitioner interface {
	partition(context.Context, *feature.Feature) ([]Dataset, error)
}

type memoryIntensiveSubsettingDataset struct {
	domain      *feature.Domain
	samples     []*Sample
	criteria    []feature.Criterion
	labelCounts []int
}

type cpuIntensiveSubsettingDataset struct {
	domain   *feature.Domain
	samples  []*Sample
	criteria []feature.Criterion
}

/*
New takes a domain and a slice of samples, validates the samples
against the domain and returns a memory-intensive dataset built with
them, or a DataError if they are not valid. The dataset keeps the given
slice, which callers must not modify afterwards.

A memory-intensive dataset replicates the slice of sample pointers when
subsetting to reduce calculations at the cost of increased memory. The
attribute vectors themselves are never copied.
*/
func New(d *feature.Domain, samples []*Sample) (Dataset, error) {
	err := Validate(d, samples)
	if err != nil {
		return nil, err
	}
	return newMemoryIntensive(d, samples, nil), nil
}

/*
NewCPUIntensive takes a domain and a slice of samples, validates the
samples against the domain and returns a CPU-intensive dataset built
with them, or a DataError if they are not valid.

A cpu-intensive dataset is an implementation that
instead of replicating the samples when subsetting, stores the
applying feature criteria to define the subset and keeps the same
sample slice. This can achieve a drastic reduction in memory use
that comes at the cost of CPU time: every calculation that goes over
the samples of the dataset will apply the feature criteria of the dataset
on all original samples (the ones provided to this method).
*/
func NewCPUIntensive(d *feature.Domain, samples []*Sample) (Dataset, error) {
	err := Validate(d, samples)
	if err != nil {
		return nil, err
	}
	return &cpuIntensiveSubsettingDataset{d, samples, nil}, nil
}

func newMemoryIntensive(d *feature.Domain, samples []*Sample, criteria []feature.Criterion) *memoryIntensiveSubsettingDataset {
	counts := make([]int, d.Labels())
	for _, s := range samples {
		counts[s.label-1]++
	}
	return &memoryIntensiveSubsettingDataset{d, samples, criteria, counts}
}

/*
Resample takes a dataset and a slice of indices into its samples and
returns a new memory-intensive dataset with the sample at each index, in
the order given. Indices may repeat. No attribute vector is copied.
It returns a DataError if a sample does not fit the dataset's domain,
as stored samples read through a narrower domain may not.
*/
func Resample(ctx context.Context, s Dataset, indices []int) (Dataset, error) {
	samples, err := s.Samples(ctx)
	if err != nil {
		return nil, err
	}
	err = Validate(s.Domain(), samples)
	if err != nil {
		return nil, err
	}
	picked := make([]*Sample, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(samples) {
			return nil, errors.Errorf("resampling: index %d out of range [0, %d)", idx, len(samples))
		}
		picked[i] = samples[idx]
	}
	return newMemoryIntensive(s.Domain(), picked, nil), nil
}

/*
Partition takes a dataset and a feature and returns one subset of the
dataset per value of the feature, the subset at position v holding the
samples with value v. Subsets may be empty.
*/
func Partition(ctx context.Context, s Dataset, f *feature.Feature) ([]Dataset, error) {
	if p, ok := s.(partitioner); ok {
		return p.partition(ctx, f)
	}
	subsets := make([]Dataset, f.Size())
	for v := range subsets {
		ss, err := s.SubsetWith(ctx, feature.NewCriterion(f, v))
		if err != nil {
			return nil, errors.Wrapf(err, "partitioning on %s = %d", f.Name(), v)
		}
		subsets[v] = ss
	}
	return subsets, nil
}

func (s *memoryIntensiveSubsettingDataset) Domain() *feature.Domain {
	return s.domain
}

func (s *cpuIntensiveSubsettingDataset) Domain() *feature.Domain {
	return s.domain
}

func (s *memoryIntensiveSubsettingDataset) Count(ctx context.Context) (int, error) {
	return len(s.samples), nil
}

func (s *cpuIntensiveSubsettingDataset) Count(ctx context.Context) (int, error) {
	var length int
	err := s.iterateOnDataset(ctx, func(_ *Sample) (bool, error) {
		length++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return length, nil
}

func (s *memoryIntensiveSubsettingDataset) Samples(ctx context.Context) ([]*Sample, error) {
	return s.samples, nil
}

func (s *cpuIntensiveSubsettingDataset) Samples(ctx context.Context) ([]*Sample, error) {
	var samples []*Sample
	err := s.iterateOnDataset(ctx, func(sample *Sample) (bool, error) {
		samples = append(samples, sample)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *memoryIntensiveSubsettingDataset) CountLabels(ctx context.Context) ([]int, error) {
	return append([]int(nil), s.labelCounts...), nil
}

func (s *cpuIntensiveSubsettingDataset) CountLabels(ctx context.Context) ([]int, error) {
	counts := make([]int, s.domain.Labels())
	err := s.iterateOnDataset(ctx, func(sample *Sample) (bool, error) {
		counts[sample.label-1]++
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *memoryIntensiveSubsettingDataset) CountValueLabels(ctx context.Context, f *feature.Feature) ([][]int, error) {
	avc := newAVC(f.Size(), s.domain.Labels())
	for _, sample := range s.samples {
		v, err := sample.ValueFor(f)
		if err != nil {
			return nil, err
		}
		avc[v][sample.label-1]++
	}
	return avc, nil
}

func (s *cpuIntensiveSubsettingDataset) CountValueLabels(ctx context.Context, f *feature.Feature) ([][]int, error) {
	avc := newAVC(f.Size(), s.domain.Labels())
	err := s.iterateOnDataset(ctx, func(sample *Sample) (bool, error) {
		v, err := sample.ValueFor(f)
		if err != nil {
			return false, err
		}
		avc[v][sample.label-1]++
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return avc, nil
}

func (s *memoryIntensiveSubsettingDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (Dataset, error) {
	var samples []*Sample
	for _, sample := range s.samples {
		ok, err := fc.SatisfiedBy(sample)
		if err != nil {
			return nil, err
		}
		if ok {
			samples = append(samples, sample)
		}
	}
	return newMemoryIntensive(s.domain, samples, append([]feature.Criterion{fc}, s.criteria...)), nil
}

func (s *cpuIntensiveSubsettingDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (Dataset, error) {
	criteria := append([]feature.Criterion{fc}, s.criteria...)
	return &cpuIntensiveSubsettingDataset{s.domain, s.samples, criteria}, nil
}

func (s *memoryIntensiveSubsettingDataset) Criteria(ctx context.Context) ([]feature.Criterion, error) {
	return s.criteria, nil
}

func (s *cpuIntensiveSubsettingDataset) Criteria(ctx context.Context) ([]feature.Criterion, error) {
	return s.criteria, nil
}

func (s *memoryIntensiveSubsettingDataset) partition(ctx context.Context, f *feature.Feature) ([]Dataset, error) {
	buckets := make([][]*Sample, f.Size())
	for _, sample := range s.samples {
		v, err := sample.ValueFor(f)
		if err != nil {
			return nil, err
		}
		buckets[v] = append(buckets[v], sample)
	}
	subsets := make([]Dataset, len(buckets))
	for v, b := range buckets {
		criteria := append([]feature.Criterion{feature.NewCriterion(f, v)}, s.criteria...)
		subsets[v] = newMemoryIntensive(s.domain, b, criteria)
	}
	return subsets, nil
}

func (s *cpuIntensiveSubsettingDataset) iterateOnDataset(ctx context.Context, lambda func(*Sample) (bool, error)) error {
	for _, sample := range s.samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		skip := false
		for _, criterion := range s.criteria {
			ok, err := criterion.SatisfiedBy(sample)
			if err != nil {
				return err
			}
			if !ok {
				skip = true
				break
			}
		}
		if !skip {
			ok, err := lambda(sample)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
	}
	return nil
}

func newAVC(values, labels int) [][]int {
	avc := make([][]int, values)
	for v := range avc {
		avc[v] = make([]int, labels)
	}
	return avc
}
