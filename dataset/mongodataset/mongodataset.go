/*
Package mongodataset provides a implementation of dataset.Dataset
that uses a MongoDB database as backend.

Samples are stored as documents of the samples collection, with a
label field and a field per feature named after it. Missing feature
fields read as 0.
*/
package mongodataset

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

/*
Dataset is a dataset.Dataset to which samples can be added
and from which samples can be sequentially read
*/
type Dataset interface {
	dataset.Dataset
	Write(context.Context, []*dataset.Sample) (int, error)
	Read(context.Context) (<-chan *dataset.Sample, <-chan error)
}

type mongodataset struct {
	session  *mgo.Session
	domain   *feature.Domain
	criteria []feature.Criterion
}

type valueLabelCount struct {
	ID struct {
		Value int `bson:"v"`
		Label int `bson:"l"`
	} `bson:"_id"`
	Count int `bson:"count"`
}

const (
	samplesCollectionName = "samples"
	labelField            = "label"
)

/*
Open takes a MongoDB database session and a domain and returns a
Dataset that works on the default database for that session or an
error if the features of the domain cannot be stored as fields or
the indexes on them cannot be ensured.
*/
func Open(ctx context.Context, session *mgo.Session, d *feature.Domain) (Dataset, error) {
	mds := &mongodataset{session: session, domain: d}
	err := mds.ensureIndexes(ctx)
	if err != nil {
		return nil, err
	}
	return mds, nil
}

func (mds *mongodataset) Domain() *feature.Domain {
	return mds.domain
}

func (mds *mongodataset) SubsetWith(ctx context.Context, fc feature.Criterion) (dataset.Dataset, error) {
	criteria := make([]feature.Criterion, 0, len(mds.criteria)+1)
	criteria = append(criteria, mds.criteria...)
	criteria = append(criteria, fc)
	return &mongodataset{mds.session, mds.domain, criteria}, nil
}

func (mds *mongodataset) CountLabels(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pipeline := []bson.M{
		{"$match": mds.query()},
		{"$group": bson.M{"_id": bson.M{"l": "$" + labelField}, "count": bson.M{"$sum": 1}}},
	}
	result := make([]int, mds.domain.Labels())
	err := mds.aggregate(pipeline, func(c valueLabelCount) error {
		if c.ID.Label < 1 || c.ID.Label > len(result) {
			return dataset.DataError(fmt.Sprintf("stored sample has invalid label %d", c.ID.Label))
		}
		result[c.ID.Label-1] = c.Count
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "counting labels")
	}
	return result, nil
}

func (mds *mongodataset) CountValueLabels(ctx context.Context, f *feature.Feature) ([][]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pipeline := []bson.M{
		{"$match": mds.query()},
		{"$group": bson.M{
			"_id":   bson.M{"v": bson.M{"$ifNull": []interface{}{"$" + f.Name(), 0}}, "l": "$" + labelField},
			"count": bson.M{"$sum": 1},
		}},
	}
	result := make([][]int, f.Size())
	for v := range result {
		result[v] = make([]int, mds.domain.Labels())
	}
	err := mds.aggregate(pipeline, func(c valueLabelCount) error {
		if ok, _ := f.Valid(c.ID.Value); !ok {
			return dataset.DataError(fmt.Sprintf("stored sample has invalid value %d for %s", c.ID.Value, f.Name()))
		}
		if c.ID.Label < 1 || c.ID.Label > mds.domain.Labels() {
			return dataset.DataError(fmt.Sprintf("stored sample has invalid label %d", c.ID.Label))
		}
		result[c.ID.Value][c.ID.Label-1] = c.Count
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "counting labels per value of %s", f.Name())
	}
	return result, nil
}

func (mds *mongodataset) Samples(ctx context.Context) ([]*dataset.Sample, error) {
	var samples []*dataset.Sample
	count, err := mds.Count(ctx)
	if err == nil {
		samples = make([]*dataset.Sample, 0, count)
	}
	sampleChan, errs := mds.Read(ctx)
	for sample := range sampleChan {
		samples = append(samples, sample)
	}
	err = <-errs
	return samples, err
}

func (mds *mongodataset) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return mds.samplesCollection().Find(mds.query()).Count()
}

func (mds *mongodataset) Criteria(context.Context) ([]feature.Criterion, error) {
	return mds.criteria, nil
}

func (mds *mongodataset) Write(ctx context.Context, samples []*dataset.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	err := dataset.Validate(mds.domain, samples)
	if err != nil {
		return 0, err
	}
	docs := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		doc := bson.M{labelField: s.Label()}
		for _, f := range mds.domain.Features() {
			value, err := s.ValueFor(f)
			if err != nil {
				return 0, err
			}
			doc[f.Name()] = value
		}
		docs = append(docs, doc)
	}
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	err = mds.samplesCollection().Insert(docs...)
	if err != nil {
		return 0, errors.Wrap(err, "inserting samples")
	}
	return len(samples), nil
}

func (mds *mongodataset) Read(ctx context.Context) (<-chan *dataset.Sample, <-chan error) {
	samples := make(chan *dataset.Sample)
	errs := make(chan error, 1)
	go func() {
		var doc bson.M
		var err error
		iter := mds.samplesCollection().Find(mds.query()).Sort("_id").Iter()
		defer iter.Close()
	loop:
		for iter.Next(&doc) {
			var s *dataset.Sample
			s, err = mds.sample(doc)
			if err != nil {
				break
			}
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break loop
			case samples <- s:
			}
		}
		if err == nil {
			err = iter.Err()
		}
		if err != nil {
			errs <- err
		}
		close(errs)
		close(samples)
	}()
	return samples, errs
}

func (mds *mongodataset) ensureIndexes(ctx context.Context) error {
	for _, f := range mds.domain.Features() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fName := f.Name()
		if fName == "_id" || fName == labelField {
			return errors.Errorf("invalid feature name %q: reserved collection field", fName)
		}
		if strings.ContainsAny(fName, ".$") {
			return errors.Errorf("invalid feature name %q: contains reserved characters %q or %q", fName, ".", "$")
		}
		index := mgo.Index{
			Key:        []string{fName},
			Background: true,
			Sparse:     true,
		}
		err := mds.samplesCollection().EnsureIndex(index)
		if err != nil {
			return errors.Wrapf(err, "ensuring index on %s", fName)
		}
	}
	return nil
}

func (mds *mongodataset) aggregate(pipeline []bson.M, lambda func(valueLabelCount) error) error {
	iter := mds.samplesCollection().Pipe(pipeline).Iter()
	defer iter.Close()
	var c valueLabelCount
	for iter.Next(&c) {
		err := lambda(c)
		if err != nil {
			return err
		}
	}
	return iter.Err()
}

func (mds *mongodataset) sample(doc bson.M) (*dataset.Sample, error) {
	label, err := toInt(doc[labelField])
	if err != nil {
		return nil, errors.Wrapf(err, "reading label of sample %v", doc["_id"])
	}
	features := mds.domain.Features()
	values := make([]int, len(features))
	for i, f := range features {
		raw, ok := doc[f.Name()]
		if !ok {
			continue
		}
		values[i], err = toInt(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s of sample %v", f.Name(), doc["_id"])
		}
	}
	return dataset.NewSample(label, values), nil
}

func (mds *mongodataset) samplesCollection() *mgo.Collection {
	return mds.session.DB("").C(samplesCollectionName)
}

// query returns the conditions of the criteria, zero values also
// matching documents that lack the field.
func (mds *mongodataset) query() bson.M {
	if len(mds.criteria) == 0 {
		return bson.M{}
	}
	conditions := make([]bson.M, 0, len(mds.criteria))
	for _, fc := range mds.criteria {
		fName := fc.Feature().Name()
		if fc.Value() == 0 {
			conditions = append(conditions, bson.M{fName: bson.M{"$in": []interface{}{0, nil}}})
			continue
		}
		conditions = append(conditions, bson.M{fName: fc.Value()})
	}
	return bson.M{"$and": conditions}
}

func toInt(v interface{}) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, errors.Errorf("expected an integer, got %v (%T)", v, v)
}
