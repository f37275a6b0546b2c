package canopy

import "fmt"

// InvalidConfigError is the error returned when a model is configured
// with invalid parameters, such as a forest with no trees.
type InvalidConfigError string

func (ice InvalidConfigError) Error() string {
	return string(ice)
}

func invalidConfigErrorf(format string, a ...interface{}) error {
	return InvalidConfigError(fmt.Sprintf(format, a...))
}
