package canopy

import (
	"context"
	"errors"
	"testing"

	"github.com/pbanos/canopy/dataset"
	"github.com/pbanos/canopy/feature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constant int

func (c constant) Predict(ctx context.Context, s feature.Sample) (int, error) {
	return int(c), nil
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	s := newDataset(t, 2, []int{2},
		[]int{1, 0},
		[]int{1, 0},
		[]int{2, 1},
		[]int{2, 0},
	)
	tr, err := NewPot().Grow(ctx, s)
	require.NoError(t, err)
	m, err := Evaluate(ctx, tr, s)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{{2, 0}, {1, 1}}, m)
	assert.Equal(t, 4, m.Total())
	assert.Equal(t, 3, m.Correct())
	assert.Equal(t, 2, m.Labels())
	assert.Equal(t, "2 0\n1 1\n", m.String())

	m, err = Evaluate(ctx, constant(2), s)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{{0, 2}, {0, 2}}, m)
}

func TestEvaluateRejectsUnknownPredictions(t *testing.T) {
	s := newDataset(t, 2, []int{2}, []int{1, 0})
	_, err := Evaluate(context.Background(), constant(3), s)
	var de dataset.DataError
	assert.True(t, errors.As(err, &de))
}

func TestConfusionMatrixAdd(t *testing.T) {
	m := NewConfusionMatrix(3)
	require.NoError(t, m.Add(3, 1))
	assert.Equal(t, 1, m[2][0])
	assert.Error(t, m.Add(0, 1))
	assert.Error(t, m.Add(1, 4))
}
