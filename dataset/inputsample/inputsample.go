/*
Package inputsample provides an implementation of feature.Sample whose
values are read from an io.Reader as they are needed.
*/
package inputsample

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

/*
readSample represents a sample whose feature values
are retrieved from a reader. A feature value will be
requested using a FeatureValueRequester before reading it.
*/
type readSample struct {
	lock                  sync.Mutex
	obtainedValues        map[int]int
	undefinedValue        string
	scanner               *bufio.Scanner
	featureValueRequester FeatureValueRequester
	domain                *feature.Domain
}

/*
FeatureValueRequester represents a way to ask
for feature values and reject the given values.
*/
type FeatureValueRequester interface {
	RequestValueFor(*feature.Feature) error
	RejectValueFor(*feature.Feature, string) error
}

/*
New takes an io.Reader, a domain, a FeatureValueRequester and an
undefinedValue coding string and returns a feature.Sample.

The returned Sample ValueFor method reads feature values first
requesting them with the given FeatureValueRequester and
then parsing the values from the reader. Each value is only
requested once.

The parsing expects each value to be presented ending with the
'\n' character, that is in new lines. Lines will be read from the
reader until a line with a valid value for the feature is found.
Non accepted values will be rejected with the FeatureValueRequester's
RejectValueFor method. The undefinedValue string followed by the '\n'
character will be interpreted as the value 0, the value of omitted
attributes.

Attempting to obtain a value for a feature not in the given
domain returns an error.
*/
func New(r io.Reader, d *feature.Domain, featureValueRequester FeatureValueRequester, undefinedValue string) feature.Sample {
	scanner := bufio.NewScanner(r)
	return &readSample{
		obtainedValues:        make(map[int]int),
		undefinedValue:        undefinedValue,
		scanner:               scanner,
		featureValueRequester: featureValueRequester,
		domain:                d,
	}
}

func (rs *readSample) ValueFor(f *feature.Feature) (int, error) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	value, ok := rs.obtainedValues[f.Index()]
	if ok {
		return value, nil
	}
	featureWithInfo := rs.domain.Feature(f.Index())
	if featureWithInfo == nil {
		return 0, errors.Errorf("have no information about feature %s, do not know how to read its value", f.Name())
	}
	err := rs.featureValueRequester.RequestValueFor(featureWithInfo)
	if err != nil {
		return 0, err
	}
	return rs.readFeature(featureWithInfo)
}

func (rs *readSample) readFeature(f *feature.Feature) (int, error) {
	var err error
	for rs.scanner.Scan() {
		line := strings.TrimSpace(rs.scanner.Text())
		if line == rs.undefinedValue {
			rs.obtainedValues[f.Index()] = 0
			return 0, nil
		}
		value, perr := strconv.Atoi(line)
		if perr == nil {
			if ok, _ := f.Valid(value); ok {
				rs.obtainedValues[f.Index()] = value
				return value, nil
			}
		}
		err = rs.featureValueRequester.RejectValueFor(f, line)
		if err != nil {
			return 0, err
		}
	}
	err = rs.scanner.Err()
	if err != nil {
		return 0, errors.Wrapf(err, "reading value for %s", f.Name())
	}
	return 0, errors.Errorf("EOF when requesting value for %s", f.Name())
}
