package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vector []int

func (v vector) ValueFor(f *Feature) (int, error) {
	if f.Index() >= len(v) {
		return 0, assert.AnError
	}
	return v[f.Index()], nil
}

func TestFeatureValid(t *testing.T) {
	f := New(2, 3)
	assert.Equal(t, "a3", f.Name())
	assert.Equal(t, 2, f.Index())
	assert.Equal(t, 3, f.Size())

	ok, err := f.Valid(2)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = f.Valid(3)
	assert.False(t, ok)
	assert.Error(t, err)

	ok, err = f.Valid(-1)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDomainCovers(t *testing.T) {
	d := NewDomain(3, []int{2, 4, 3})
	assert.Equal(t, 3, d.Labels())
	assert.Equal(t, []int{2, 4, 3}, d.Sizes())
	assert.Nil(t, d.Feature(3))
	require.NotNil(t, d.Feature(1))
	assert.Equal(t, 4, d.Feature(1).Size())

	assert.True(t, d.Covers(NewDomain(2, []int{2, 4})))
	assert.True(t, d.Covers(d))
	assert.False(t, d.Covers(NewDomain(4, []int{2, 4, 3})))
	assert.False(t, d.Covers(NewDomain(3, []int{2, 4, 3, 1})))
	assert.False(t, d.Covers(NewDomain(3, []int{2, 5, 3})))
}

func TestDomainFeaturesIsACopy(t *testing.T) {
	d := NewDomain(2, []int{2, 2})
	fs := d.Features()
	fs[0], fs[1] = fs[1], fs[0]
	assert.Equal(t, 0, d.Features()[0].Index())
}

func TestCriterionSatisfiedBy(t *testing.T) {
	f := New(1, 3)
	c := NewCriterion(f, 2)
	assert.Equal(t, f, c.Feature())
	assert.Equal(t, 2, c.Value())
	assert.Equal(t, "a2 = 2", c.(*valueCriterion).String())

	ok, err := c.SatisfiedBy(vector{0, 2})
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SatisfiedBy(vector{2, 0})
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = c.SatisfiedBy(vector{2})
	assert.Error(t, err)
}
