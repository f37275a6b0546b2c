package canopy

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
)

/*
Classifier is the interface implemented by trained models, *tree.Tree and
*Ensemble, that predict the label of samples.
*/
type Classifier interface {
	Predict(ctx context.Context, s feature.Sample) (int, error)
}

/*
ConfusionMatrix counts the predictions of a classifier on labeled samples:
m[actual-1][predicted-1] is the number of samples of label actual that
were predicted label predicted.
*/
type ConfusionMatrix [][]int

// NewConfusionMatrix returns an empty confusion matrix for the given
// number of labels.
func NewConfusionMatrix(labels int) ConfusionMatrix {
	m := make(ConfusionMatrix, labels)
	for i := range m {
		m[i] = make([]int, labels)
	}
	return m
}

/*
Add counts a prediction on the matrix. It returns a dataset.DataError
if either label is outside the matrix.
*/
func (m ConfusionMatrix) Add(actual, predicted int) error {
	if actual < 1 || actual > len(m) || predicted < 1 || predicted > len(m) {
		return dataset.DataError(fmt.Sprintf("labels %d and %d do not fit a confusion matrix of %d labels", actual, predicted, len(m)))
	}
	m[actual-1][predicted-1]++
	return nil
}

// Labels returns the number of labels of the matrix.
func (m ConfusionMatrix) Labels() int {
	return len(m)
}

// Total returns the number of predictions counted on the matrix.
func (m ConfusionMatrix) Total() int {
	var total int
	for _, row := range m {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// Correct returns the number of right predictions counted on the matrix.
func (m ConfusionMatrix) Correct() int {
	var correct int
	for i := range m {
		correct += m[i][i]
	}
	return correct
}

func (m ConfusionMatrix) String() string {
	var b strings.Builder
	for _, row := range m {
		for j, c := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", c)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

/*
Evaluate takes a context, a classifier and a dataset of labeled samples and
returns the confusion matrix of the classifier's predictions for them,
sized after the dataset's label count. It returns the first prediction
error, or a dataset.DataError for predictions outside the matrix.
*/
func Evaluate(ctx context.Context, c Classifier, s dataset.Dataset) (ConfusionMatrix, error) {
	samples, err := s.Samples(ctx)
	if err != nil {
		return nil, err
	}
	m := NewConfusionMatrix(s.Domain().Labels())
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		predicted, err := c.Predict(ctx, sample)
		if err != nil {
			return nil, errors.Wrapf(err, "predicting sample %d", i)
		}
		err = m.Add(sample.Label(), predicted)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}
