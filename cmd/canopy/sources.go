package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/dataset/dbdataset"
	"github.com/pbanos/canopy/dataset/mongodataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/set/csv"
	"github.com/pbanos/canopy/set/sparse"
	"github.com/pbanos/canopy/set/sqlset/pgadapter"
	"github.com/pbanos/canopy/set/sqlset/sqlite3adapter"
	"github.com/pkg/errors"
	mgo "gopkg.in/mgo.v2"
)

const locationHelp = "a CSV (.csv) or SQLite3 (.db) file, a PostgreSQL (postgresql://) or MongoDB (mongodb://) URL, or a file in sparse format"

/*
sampleWriter is the interface of the outputs samples can be dumped
into.
*/
type sampleWriter interface {
	Write(context.Context, []*dataset.Sample) (int, error)
	Flush() error
}

type flushableSampleWriter struct {
	dbSet
}

type closer func()

func isPostgreSQL(location string) bool {
	return strings.HasPrefix(location, "postgresql://") || strings.HasPrefix(location, "postgres://")
}

func isMongoDB(location string) bool {
	return strings.HasPrefix(location, "mongodb://")
}

func isSQLite3(location string) bool {
	return strings.HasSuffix(location, ".db")
}

func isCSV(location string) bool {
	return strings.HasSuffix(location, ".csv")
}

func isDatabase(location string) bool {
	return isPostgreSQL(location) || isMongoDB(location) || isSQLite3(location)
}

/*
readSet returns the dataset at the given location. Files are read over
the given domain when it is not nil, and over the domain derived from
their samples otherwise. Databases require a domain. The returned closer
releases the connections the dataset holds, and must be called once the
dataset is no longer used.
*/
func readSet(ctx context.Context, l logger, location string, d *feature.Domain, cpuIntensive bool) (dataset.Dataset, closer, error) {
	if isDatabase(location) {
		if d == nil {
			return nil, nil, errors.Errorf("reading set from %s: a metadata file declaring its domain is required", location)
		}
		return openDatabaseSet(ctx, l, location, d, false)
	}
	var s dataset.Dataset
	var err error
	if location == "" {
		l.Logf("Reading set from STDIN...")
	} else {
		l.Logf("Reading set from %s...", location)
	}
	switch {
	case isCSV(location):
		s, err = csv.ReadSetFromFilePath(location, d)
	case d != nil:
		s, err = sparse.ReadTestFromFilePath(location, d)
	default:
		s, err = sparse.ReadTrainingFromFilePath(location)
	}
	if err != nil {
		return nil, nil, err
	}
	if cpuIntensive {
		samples, err := s.Samples(ctx)
		if err != nil {
			return nil, nil, err
		}
		s, err = dataset.NewCPUIntensive(s.Domain(), samples)
		if err != nil {
			return nil, nil, err
		}
	}
	return s, func() {}, nil
}

/*
openDatabaseSet opens the set stored in the database at the given
location, creating its samples table or indexes when create is true.
*/
func openDatabaseSet(ctx context.Context, l logger, location string, d *feature.Domain, create bool) (dbSet, closer, error) {
	if isMongoDB(location) {
		l.Logf("Connecting to MongoDB at %s...", location)
		session, err := mgo.Dial(location)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "connecting to MongoDB at %s", location)
		}
		s, err := mongodataset.Open(ctx, session, d)
		if err != nil {
			session.Close()
			return nil, nil, err
		}
		return s, session.Close, nil
	}
	var adapter dbdataset.Adapter
	var err error
	if isPostgreSQL(location) {
		l.Logf("Creating PostgreSQL adapter for url %s...", location)
		adapter, err = pgadapter.New(location)
	} else {
		l.Logf("Creating SQLite3 adapter for file %s...", location)
		adapter, err = sqlite3adapter.New(location)
	}
	if err != nil {
		return nil, nil, err
	}
	var s dbdataset.Set
	if create {
		s, err = dbdataset.Create(ctx, adapter, d)
	} else {
		s, err = dbdataset.Open(ctx, adapter, d)
	}
	if err != nil {
		adapter.Close()
		return nil, nil, err
	}
	return s, func() { adapter.Close() }, nil
}

// dbSet is what database backed sets have in common.
type dbSet interface {
	dataset.Dataset
	Write(context.Context, []*dataset.Sample) (int, error)
	Read(context.Context) (<-chan *dataset.Sample, <-chan error)
}

/*
outputWriter returns a sampleWriter for the given location of samples
of the given domain. An empty location means STDOUT in CSV format.
*/
func outputWriter(ctx context.Context, l logger, location string, d *feature.Domain) (sampleWriter, closer, error) {
	if isDatabase(location) {
		s, closeSet, err := openDatabaseSet(ctx, l, location, d, true)
		if err != nil {
			return nil, nil, err
		}
		return &flushableSampleWriter{s}, closeSet, nil
	}
	var outputFile *os.File
	var err error
	if location != "" {
		l.Logf("Creating %s to dump output set...", location)
		outputFile, err = os.Create(location)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "creating %s", location)
		}
	} else {
		l.Logf("Using STDOUT to dump output set...")
		outputFile = os.Stdout
	}
	closeFile := func() {
		if outputFile != os.Stdout {
			outputFile.Close()
		}
	}
	if location != "" && !isCSV(location) {
		return sparse.NewWriter(outputFile), closeFile, nil
	}
	w, err := csv.NewWriter(outputFile, d)
	if err != nil {
		closeFile()
		return nil, nil, err
	}
	return w, closeFile, nil
}

func (fsw *flushableSampleWriter) Flush() error {
	return nil
}

func describe(ctx context.Context, s dataset.Dataset) string {
	count, err := s.Count(ctx)
	if err != nil {
		return fmt.Sprintf("a set over %v", s.Domain())
	}
	return fmt.Sprintf("a set with %d samples over %v", count, s.Domain())
}
