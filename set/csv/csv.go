/*
Package csv reads and writes datasets as CSV streams. The header of a
stream names its columns: LabelColumn for the label of the samples and
the name of a feature for each attribute.
*/
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

// LabelColumn is the name of the column holding the label of samples.
const LabelColumn = "label"

/*
Writer is an interface for a set to which samples
can be written to.
*/
type Writer interface {
	// Write will attempt to write the given number
	// of samples and will return the actually written
	// number of samples and an error (if not all samples
	// could be written)
	Write(context.Context, []*dataset.Sample) (int, error)
	// Count returns the total number of samples written
	// to the writer
	Count() int
	// Flush ensures any pending written operations finish
	// before returning. It returns an error if that cannot
	// be ensured.
	Flush() error
}

type csvWriter struct {
	count    int
	features []*feature.Feature
	w        *csv.Writer
}

/*
ReadSet takes an io.Reader for a CSV stream and a domain and returns the
dataset of the samples parsed from the reader or an error.

Every column of the header must be LabelColumn or the name of a feature
of the domain, and every feature must have a column. When the domain is
nil, every column other than LabelColumn is an attribute, in order, and
the domain is derived from the samples with dataset.DeriveDomain, naming
its features after the columns.
*/
func ReadSet(reader io.Reader, d *feature.Domain) (dataset.Dataset, error) {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	labelColumn, columns, err := parseHeader(header, d)
	if err != nil {
		return nil, err
	}
	var samples []*dataset.Sample
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading body")
		}
		sample, err := parseRow(row, labelColumn, columns)
		if err != nil {
			return nil, dataset.DataError(fmt.Sprintf("parsing line %d: %v", l, err))
		}
		samples = append(samples, sample)
	}
	if d == nil {
		d, err = dataset.DeriveDomain(samples)
		if err != nil {
			return nil, err
		}
		d = nameFeatures(d, header, labelColumn)
	}
	return dataset.New(d, samples)
}

/*
ReadSetFromFilePath takes a filepath string and a domain, opens the file
to which the filepath points to and uses ReadSet to return the dataset
read from it. If the filepath is "" os.Stdin is used instead.
*/
func ReadSetFromFilePath(filepath string, d *feature.Domain) (dataset.Dataset, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, errors.Wrap(err, "reading CSV set")
		}
		defer f.Close()
	}
	s, err := ReadSet(f, d)
	if err != nil {
		err = errors.Wrapf(err, "parsing CSV file %s", filepath)
	}
	return s, err
}

/*
NewWriter takes an io.Writer and a domain and returns a Writer that will
write samples of the domain on the io.Writer, after a header naming
LabelColumn and the features of the domain.
*/
func NewWriter(writer io.Writer, d *feature.Domain) (Writer, error) {
	w := csv.NewWriter(writer)
	features := d.Features()
	record := make([]string, 0, len(features)+1)
	record = append(record, LabelColumn)
	for _, f := range features {
		record = append(record, f.Name())
	}
	err := w.Write(record)
	if err != nil {
		return nil, errors.Wrap(err, "writing CSV header")
	}
	return &csvWriter{features: features, w: w}, nil
}

/*
WriteCSVSet takes a writer and a dataset and dumps to the writer the
samples of the dataset in CSV format. It returns an error if something
went wrong when writing to the writer.
*/
func WriteCSVSet(ctx context.Context, writer io.Writer, s dataset.Dataset) error {
	cw, err := NewWriter(writer, s.Domain())
	if err != nil {
		return err
	}
	samples, err := s.Samples(ctx)
	if err != nil {
		return err
	}
	_, err = cw.Write(ctx, samples)
	if err != nil {
		return err
	}
	return cw.Flush()
}

func parseHeader(header []string, d *feature.Domain) (int, []*feature.Feature, error) {
	labelColumn := -1
	columns := make([]*feature.Feature, len(header))
	var byName map[string]*feature.Feature
	if d != nil {
		byName = make(map[string]*feature.Feature)
		for _, f := range d.Features() {
			byName[f.Name()] = f
		}
	}
	attribute := 0
	for i, name := range header {
		if name == LabelColumn {
			if labelColumn >= 0 {
				return 0, nil, errors.Errorf("parsing header: duplicated %s column", LabelColumn)
			}
			labelColumn = i
			continue
		}
		if d == nil {
			columns[i] = feature.NewNamed(name, attribute, 0)
			attribute++
			continue
		}
		f, ok := byName[name]
		if !ok {
			return 0, nil, errors.Errorf("parsing header: reference to unknown feature %s", name)
		}
		delete(byName, name)
		columns[i] = f
	}
	if labelColumn < 0 {
		return 0, nil, errors.Errorf("parsing header: no %s column", LabelColumn)
	}
	for name := range byName {
		return 0, nil, errors.Errorf("parsing header: no column for feature %s", name)
	}
	return labelColumn, columns, nil
}

func parseRow(row []string, labelColumn int, columns []*feature.Feature) (*dataset.Sample, error) {
	label, err := strconv.Atoi(row[labelColumn])
	if err != nil {
		return nil, errors.Errorf("converting label %s to int: %v", row[labelColumn], err)
	}
	attributes := 0
	for _, f := range columns {
		if f != nil {
			attributes++
		}
	}
	values := make([]int, attributes)
	for i, f := range columns {
		if f == nil {
			continue
		}
		v, err := strconv.Atoi(row[i])
		if err != nil {
			return nil, errors.Errorf("converting %s to int for feature %s: %v", row[i], f.Name(), err)
		}
		values[f.Index()] = v
	}
	return dataset.NewSample(label, values), nil
}

func nameFeatures(d *feature.Domain, header []string, labelColumn int) *feature.Domain {
	features := make([]*feature.Feature, 0, len(header)-1)
	for i, name := range header {
		if i == labelColumn {
			continue
		}
		index := len(features)
		features = append(features, feature.NewNamed(name, index, d.Feature(index).Size()))
	}
	return feature.NewNamedDomain(d.Labels(), features)
}

func (cw *csvWriter) Count() int {
	return cw.count
}

func (cw *csvWriter) Write(ctx context.Context, samples []*dataset.Sample) (int, error) {
	n := 0
	var err error
	for ; n < len(samples); n++ {
		if err = ctx.Err(); err != nil {
			return n, err
		}
		err = cw.WriteSample(samples[n])
		if err != nil {
			return n, err
		}
	}
	return len(samples), nil
}

// WriteSample writes a single sample on the CSV stream.
func (cw *csvWriter) WriteSample(sample *dataset.Sample) error {
	record := make([]string, 0, len(cw.features)+1)
	record = append(record, strconv.Itoa(sample.Label()))
	for _, f := range cw.features {
		v, err := sample.ValueFor(f)
		if err != nil {
			return err
		}
		record = append(record, strconv.Itoa(v))
	}
	err := cw.w.Write(record)
	if err != nil {
		return errors.Wrapf(err, "writing CSV row for sample %d", cw.count+1)
	}
	cw.count++
	return nil
}

func (cw *csvWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}
