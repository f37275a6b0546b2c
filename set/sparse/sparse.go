/*
Package sparse reads and writes datasets in a sparse text format: one
sample per line, made of its label followed by space separated
index:value pairs, indices being 1-based attribute positions. Attributes
not listed on a line take the value 0.

	1 1:2 3:1
	2 2:1 3:4
*/
package sparse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

type pair struct {
	index int
	value int
}

type line struct {
	label int
	pairs []pair
}

/*
ReadSamples takes an io.Reader and returns the samples parsed from it, all
of them with as many attributes as the highest index found on the stream,
or a dataset.DataError if a line cannot be parsed. Empty lines are skipped.
*/
func ReadSamples(reader io.Reader) ([]*dataset.Sample, error) {
	lines, attributes, err := readLines(reader)
	if err != nil {
		return nil, err
	}
	return samples(lines, attributes), nil
}

/*
ReadTraining takes an io.Reader and returns the dataset of the samples
parsed from it, over the domain they define as defined by
dataset.DeriveDomain.
*/
func ReadTraining(reader io.Reader) (dataset.Dataset, error) {
	samples, err := ReadSamples(reader)
	if err != nil {
		return nil, err
	}
	d, err := dataset.DeriveDomain(samples)
	if err != nil {
		return nil, err
	}
	return dataset.New(d, samples)
}

/*
ReadTest takes an io.Reader and the domain of the training data and returns
the dataset of the samples parsed from it over the training domain. It
returns a dataset.DataError if any sample has more attributes, a label or
a value out of the training domain.
*/
func ReadTest(reader io.Reader, training *feature.Domain) (dataset.Dataset, error) {
	lines, attributes, err := readLines(reader)
	if err != nil {
		return nil, err
	}
	if trained := len(training.Sizes()); attributes > trained {
		return nil, dataset.DataError(fmt.Sprintf("test data has %d attributes, training data only %d", attributes, trained))
	}
	return dataset.New(training, samples(lines, len(training.Sizes())))
}

/*
ReadTrainingFromFilePath takes a filepath string, opens the file to which
the filepath points to and uses ReadTraining to return the dataset read
from it. If the filepath is "" os.Stdin is used instead.
*/
func ReadTrainingFromFilePath(filepath string) (dataset.Dataset, error) {
	var s dataset.Dataset
	err := withFile(filepath, func(r io.Reader) error {
		var err error
		s, err = ReadTraining(r)
		return err
	})
	return s, err
}

/*
ReadTestFromFilePath takes a filepath string and the domain of the training
data, opens the file to which the filepath points to and uses ReadTest to
return the dataset read from it. If the filepath is "" os.Stdin is used
instead.
*/
func ReadTestFromFilePath(filepath string, training *feature.Domain) (dataset.Dataset, error) {
	var s dataset.Dataset
	err := withFile(filepath, func(r io.Reader) error {
		var err error
		s, err = ReadTest(r, training)
		return err
	})
	return s, err
}

/*
Writer writes samples on an io.Writer in sparse format, leaving out
0 values.
*/
type Writer struct {
	count int
	w     *bufio.Writer
}

// NewWriter returns a Writer that writes samples on the given io.Writer.
func NewWriter(writer io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(writer)}
}

// Count returns the total number of samples written to the writer
func (sw *Writer) Count() int {
	return sw.count
}

/*
Write writes the given samples and returns the number of samples written
and an error if not all of them could be written. Samples may remain
buffered until Flush is called.
*/
func (sw *Writer) Write(ctx context.Context, samples []*dataset.Sample) (int, error) {
	for n, sample := range samples {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		sw.w.WriteString(strconv.Itoa(sample.Label()))
		for i, v := range sample.Values() {
			if v != 0 {
				fmt.Fprintf(sw.w, " %d:%d", i+1, v)
			}
		}
		if err := sw.w.WriteByte('\n'); err != nil {
			return n, errors.Wrap(err, "writing sparse sample")
		}
		sw.count++
	}
	return len(samples), nil
}

// Flush writes any buffered samples to the underlying io.Writer.
func (sw *Writer) Flush() error {
	return errors.Wrap(sw.w.Flush(), "writing sparse samples")
}

/*
WriteSet takes a context, a writer and a dataset and dumps the samples of
the dataset on the writer in sparse format, leaving out 0 values.
*/
func WriteSet(ctx context.Context, writer io.Writer, s dataset.Dataset) error {
	samples, err := s.Samples(ctx)
	if err != nil {
		return err
	}
	w := NewWriter(writer)
	_, err = w.Write(ctx, samples)
	if err != nil {
		return err
	}
	return w.Flush()
}

func withFile(filepath string, f func(io.Reader) error) error {
	var file *os.File
	if filepath == "" {
		file = os.Stdin
	} else {
		var err error
		file, err = os.Open(filepath)
		if err != nil {
			return errors.Wrapf(err, "reading sparse set")
		}
		defer file.Close()
	}
	err := f(file)
	if err != nil {
		return errors.Wrapf(err, "parsing sparse file %s", filepath)
	}
	return nil
}

func readLines(reader io.Reader) ([]line, int, error) {
	var lines []line
	var attributes int
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for n := 1; scanner.Scan(); n++ {
		words := strings.Fields(scanner.Text())
		if len(words) == 0 {
			continue
		}
		l, err := parseLine(words)
		if err != nil {
			return nil, 0, dataset.DataError(fmt.Sprintf("line %d: %v", n, err))
		}
		for _, p := range l.pairs {
			if p.index > attributes {
				attributes = p.index
			}
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "reading sparse samples")
	}
	return lines, attributes, nil
}

func parseLine(words []string) (line, error) {
	label, err := strconv.Atoi(words[0])
	if err != nil {
		return line{}, fmt.Errorf("invalid label %q", words[0])
	}
	l := line{label: label, pairs: make([]pair, 0, len(words)-1)}
	for _, w := range words[1:] {
		parts := strings.Split(w, ":")
		if len(parts) != 2 {
			return line{}, fmt.Errorf("invalid attribute %q", w)
		}
		index, err := strconv.Atoi(parts[0])
		if err != nil || index < 1 {
			return line{}, fmt.Errorf("invalid attribute index in %q", w)
		}
		value, err := strconv.Atoi(parts[1])
		if err != nil || value < 0 {
			return line{}, fmt.Errorf("invalid attribute value in %q", w)
		}
		l.pairs = append(l.pairs, pair{index, value})
	}
	return l, nil
}

func samples(lines []line, attributes int) []*dataset.Sample {
	result := make([]*dataset.Sample, len(lines))
	for i, l := range lines {
		values := make([]int, attributes)
		for _, p := range l.pairs {
			values[p.index-1] = p.value
		}
		result[i] = dataset.NewSample(l.label, values)
	}
	return result
}
