package feature

import (
	"fmt"
)

/*
Criterion represents a constraint on a feature: the value a sample
must have on it.

Its SatisfiedBy method takes a sample and returns a boolean indicating if
the sample satisfies the criterion.

Its Feature method returns the feature on which the criterion is applied.
*/
type Criterion interface {
	Feature() *Feature
	Value() int
	SatisfiedBy(sample Sample) (bool, error)
}

/*
Sample is an interface for something that can satisfy a Criterion.

Its ValueFor method returns the value corresponding to the feature
passed as parameter.
*/
type Sample interface {
	ValueFor(*Feature) (int, error)
}

type valueCriterion struct {
	feature *Feature
	value   int
}

/*
NewCriterion takes a feature and a value and returns a Criterion
satisfied by samples having that value on the feature.
*/
func NewCriterion(f *Feature, value int) Criterion {
	return &valueCriterion{f, value}
}

/*
Feature returns the feature to which the constraint applies.
*/
func (vc *valueCriterion) Feature() *Feature {
	return vc.feature
}

func (vc *valueCriterion) Value() int {
	return vc.value
}

/*
SatisfiedBy receives a sample as parameter and returns a boolean indicating if the
sample satisfies the criterion, or an error if the sample has no value for
the feature.
*/
func (vc *valueCriterion) SatisfiedBy(sample Sample) (bool, error) {
	val, err := sample.ValueFor(vc.feature)
	if err != nil {
		return false, err
	}
	return val == vc.value, nil
}

func (vc *valueCriterion) String() string {
	return fmt.Sprintf("%s = %d", vc.feature.Name(), vc.value)
}
