package report

import (
	"math"
	"testing"

	"github.com/pbanos/canopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBinary(t *testing.T) {
	m := canopy.ConfusionMatrix{
		{3, 1},
		{2, 4},
	}
	r := New(m)
	assert.InDelta(t, 0.7, r.Accuracy, 1e-9)
	require.Len(t, r.Classes, 2)

	c := r.Classes[0]
	assert.Equal(t, 1, c.Label)
	assert.InDelta(t, 0.75, c.Sensitivity, 1e-9)
	assert.InDelta(t, 4.0/6, c.Specificity, 1e-9)
	assert.InDelta(t, 0.6, c.Precision, 1e-9)
	assert.Equal(t, c.Sensitivity, c.Recall)
	assert.InDelta(t, 2*0.6*0.75/(0.6+0.75), c.F1, 1e-9)
	assert.InDelta(t, 1.25*0.6*0.75/(0.25*0.6+0.75), c.F05, 1e-9)
	assert.InDelta(t, 5*0.6*0.75/(4*0.6+0.75), c.F2, 1e-9)

	assert.InDelta(t, (0.75+4.0/6)/2, r.Macro.Sensitivity, 1e-9)
}

func TestUndefinedMeasuresAreNaN(t *testing.T) {
	m := canopy.ConfusionMatrix{
		{2, 0, 0},
		{1, 0, 0},
		{0, 0, 0},
	}
	r := New(m)
	assert.True(t, math.IsNaN(r.Classes[1].Precision))
	assert.True(t, math.IsNaN(r.Classes[2].Sensitivity))
	assert.True(t, math.IsNaN(r.Classes[2].F1))
	assert.Equal(t, 0.0, r.Classes[1].Sensitivity)
	assert.True(t, math.IsNaN(r.Classes[1].F1))
	assert.InDelta(t, 0.5, r.Macro.Sensitivity, 1e-9)
	assert.True(t, math.IsNaN(New(canopy.NewConfusionMatrix(2)).Accuracy))
	assert.True(t, math.IsNaN(New(canopy.NewConfusionMatrix(2)).Macro.F2))
}

func TestRender(t *testing.T) {
	r := New(canopy.ConfusionMatrix{{1, 0}, {0, 1}})
	out := r.String()
	assert.Contains(t, out, "Overall accuracy: 1.0000")
	assert.Contains(t, out, "Specificity")
	assert.Contains(t, out, "F-0.5 Score")
	assert.Contains(t, out, "Macro")
}
