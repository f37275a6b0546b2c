package dataset

import "fmt"

/*
DataError is the error returned when samples or domains are
malformed or incompatible with each other: too few labels or
attributes, labels or values out of their domains, or test data
exceeding the dimensions of the training data.
*/
type DataError string

func (de DataError) Error() string {
	return string(de)
}

func dataErrorf(format string, a ...interface{}) error {
	return DataError(fmt.Sprintf(format, a...))
}
