/*
Package yaml provides methods to parse feature.Domain specifications
also known as metadata, from YAML documents.
*/
package yaml

import (
	"io/ioutil"

	"github.com/pbanos/canopy/feature"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

type metadata struct {
	Labels     int      `yaml:"labels"`
	Attributes []int    `yaml:"attributes"`
	Names      []string `yaml:"names,omitempty"`
}

/*
ReadDomain takes a slice of bytes with a domain specification in YAML and
returns the domain parsed from it or an error.
The YAML is expected to be an object with a labels property holding the
number of class labels, an attributes property holding the list of
domain sizes of each attribute, and optionally a names property with
a name for each attribute.
*/
func ReadDomain(md []byte) (*feature.Domain, error) {
	m := &metadata{}
	err := yaml.Unmarshal(md, m)
	if err != nil {
		return nil, errors.Wrap(err, "parsing yaml domain")
	}
	if m.Labels < 2 {
		return nil, errors.Errorf("metadata declares %d labels, at least 2 are required", m.Labels)
	}
	if len(m.Attributes) == 0 {
		return nil, errors.New("metadata has no attribute information")
	}
	if len(m.Names) > 0 && len(m.Names) != len(m.Attributes) {
		return nil, errors.Errorf("metadata declares %d names for %d attributes", len(m.Names), len(m.Attributes))
	}
	for i, s := range m.Attributes {
		if s < 1 {
			return nil, errors.Errorf("attribute %d has invalid domain size %d", i+1, s)
		}
	}
	d := feature.NewDomain(m.Labels, m.Attributes)
	if len(m.Names) == 0 {
		return d, nil
	}
	features := make([]*feature.Feature, len(m.Attributes))
	for i, s := range m.Attributes {
		features[i] = feature.NewNamed(m.Names[i], i, s)
	}
	return feature.NewNamedDomain(m.Labels, features), nil
}

/*
ReadDomainFromFile takes a filepath string, reads its contents and uses
ReadDomain to parse it and return the domain or an error.
If the file indicated by the filepath cannot be opened for reading an error
will be returned.
*/
func ReadDomainFromFile(filepath string) (*feature.Domain, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading domain yaml file %s", filepath)
	}
	d, err := ReadDomain(md)
	if err != nil {
		err = errors.Wrapf(err, "parsing domain yaml file %s", filepath)
	}
	return d, err
}

/*
WriteDomain returns the YAML document describing the given domain,
suitable to be read back with ReadDomain.
*/
func WriteDomain(d *feature.Domain) ([]byte, error) {
	m := &metadata{Labels: d.Labels(), Attributes: d.Sizes()}
	named := false
	for _, f := range d.Features() {
		if f.Name() != feature.New(f.Index(), f.Size()).Name() {
			named = true
			break
		}
	}
	if named {
		for _, f := range d.Features() {
			m.Names = append(m.Names, f.Name())
		}
	}
	return yaml.Marshal(m)
}
