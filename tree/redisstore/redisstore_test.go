package redisstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/redis.v5"
)

func TestJSONNodeEncodeDecoder(t *testing.T) {
	d := feature.NewDomain(3, []int{2, 4})
	ned := NewJSONNodeEncodeDecoder(d)
	n := &tree.Node{
		ID:               "x",
		ParentID:         "p",
		SubtreeIDs:       []string{"a", "b", "c", "d"},
		Prediction:       3,
		Weight:           12,
		FeatureCriterion: feature.NewCriterion(d.Feature(0), 1),
		SubtreeFeature:   d.Feature(1),
	}
	data, err := ned.Encode(n)
	require.NoError(t, err)
	decoded, err := ned.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.ParentID, decoded.ParentID)
	assert.Equal(t, n.SubtreeIDs, decoded.SubtreeIDs)
	assert.Equal(t, 3, decoded.Prediction)
	assert.Equal(t, 12, decoded.Weight)
	assert.True(t, decoded.SubtreeFeature == d.Feature(1))
	require.NotNil(t, decoded.FeatureCriterion)
	assert.Equal(t, 1, decoded.FeatureCriterion.Value())
	assert.True(t, decoded.FeatureCriterion.Feature() == d.Feature(0))

	leaf, err := ned.Decode([]byte(`{"id":"l","pred":2}`))
	require.NoError(t, err)
	assert.True(t, leaf.IsLeaf())
	assert.Nil(t, leaf.FeatureCriterion)

	_, err = ned.Decode([]byte(`{"id":"l","pred":2,"f":7}`))
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CANOPY_REDIS_ADDR")
	if addr == "" {
		t.Skip("CANOPY_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rc := redis.NewClient(&redis.Options{Addr: addr})
	defer rc.Close()
	prefix := fmt.Sprintf("canopy-test-%d", time.Now().UnixNano())
	defer Drop(ctx, rc, prefix)

	d := feature.NewDomain(2, []int{2})
	ns := New(rc, prefix, NewJSONNodeEncodeDecoder(d))
	n := &tree.Node{Prediction: 2, Weight: 4}
	require.NoError(t, ns.Create(ctx, n))
	assert.Equal(t, "1", n.ID)
	other := &tree.Node{}
	require.NoError(t, ns.Create(ctx, other))
	assert.Equal(t, "2", other.ID)

	n.SubtreeFeature = d.Feature(0)
	require.NoError(t, ns.Store(ctx, n))
	got, err := ns.Get(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Prediction)
	assert.False(t, got.IsLeaf())

	require.NoError(t, ns.Delete(ctx, n))
	got, err = ns.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, ns.Close(ctx))
}
