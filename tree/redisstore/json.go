package redisstore

import (
	"encoding/json"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
	"github.com/pkg/errors"
)

type jsonNodeEncodeDecoder struct {
	domain *feature.Domain
}

type node struct {
	ID             string   `json:"id"`
	ParentID       string   `json:"pId,omitempty"`
	SubtreeIDs     []string `json:"stIds,omitempty"`
	Prediction     int      `json:"pred"`
	Weight         int      `json:"w,omitempty"`
	Criterion      *value   `json:"c,omitempty"`
	SubtreeFeature *int     `json:"f,omitempty"`
}

type value struct {
	Feature int `json:"f"`
	Value   int `json:"v"`
}

/*
NewJSONNodeEncodeDecoder returns a NodeEncodeDecoder that encodes nodes
as JSON documents, referring to features by their index in the given
domain.
*/
func NewJSONNodeEncodeDecoder(d *feature.Domain) NodeEncodeDecoder {
	return &jsonNodeEncodeDecoder{d}
}

func (ned *jsonNodeEncodeDecoder) Encode(n *tree.Node) ([]byte, error) {
	jn := &node{
		ID:         n.ID,
		ParentID:   n.ParentID,
		SubtreeIDs: n.SubtreeIDs,
		Prediction: n.Prediction,
		Weight:     n.Weight,
	}
	if n.FeatureCriterion != nil {
		jn.Criterion = &value{n.FeatureCriterion.Feature().Index(), n.FeatureCriterion.Value()}
	}
	if n.SubtreeFeature != nil {
		index := n.SubtreeFeature.Index()
		jn.SubtreeFeature = &index
	}
	return json.Marshal(jn)
}

func (ned *jsonNodeEncodeDecoder) Decode(data []byte) (*tree.Node, error) {
	jn := &node{}
	err := json.Unmarshal(data, jn)
	if err != nil {
		return nil, err
	}
	n := &tree.Node{
		ID:         jn.ID,
		ParentID:   jn.ParentID,
		SubtreeIDs: jn.SubtreeIDs,
		Prediction: jn.Prediction,
		Weight:     jn.Weight,
	}
	if jn.Criterion != nil {
		f := ned.domain.Feature(jn.Criterion.Feature)
		if f == nil {
			return nil, errors.Errorf("decoding node %v: unknown feature %d", n.ID, jn.Criterion.Feature)
		}
		n.FeatureCriterion = feature.NewCriterion(f, jn.Criterion.Value)
	}
	if jn.SubtreeFeature != nil {
		f := ned.domain.Feature(*jn.SubtreeFeature)
		if f == nil {
			return nil, errors.Errorf("decoding node %v: unknown feature %d", n.ID, *jn.SubtreeFeature)
		}
		n.SubtreeFeature = f
	}
	return n, nil
}
