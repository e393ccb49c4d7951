// Package profile loads named encoder parameter sets from YAML.
//
// A profile looks like:
//
//	name: realtime
//	description: low-delay CBR for conferencing
//	preset: 10
//	params:
//	  pred-struct: 1
//	  rc: 2
//	  tbr: 2000
//	  enable-tf: false
//
// Parameters are applied in file order, so later keys override earlier ones
// the same way repeated command-line options do.
package profile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thesyncim/svtav1"
)

// Profile is a named, ordered parameter set.
type Profile struct {
	Name        string
	Description string
	// Preset is nil when the profile leaves the preset alone.
	Preset *int8
	Params []svtav1.Param
}

type document struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Preset      *int8     `yaml:"preset"`
	Params      yaml.Node `yaml:"params"`
}

// Load reads a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a single profile document.
func Parse(r io.Reader) (*Profile, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("profile: empty document")
		}
		return nil, fmt.Errorf("profile: %w", err)
	}

	params, err := paramsFromNode(&doc.Params)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Name:        doc.Name,
		Description: doc.Description,
		Preset:      doc.Preset,
		Params:      params,
	}, nil
}

func paramsFromNode(n *yaml.Node) ([]svtav1.Param, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("profile: line %d: params must be a mapping", n.Line)
	}
	params := make([]svtav1.Param, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("profile: line %d: %s must be a scalar", val.Line, key.Value)
		}
		params = append(params, svtav1.Param{Name: key.Value, Value: scalarValue(val)})
	}
	return params, nil
}

// scalarValue maps YAML booleans to the 1/0 form the encoder's parser
// accepts; everything else passes through as written.
func scalarValue(n *yaml.Node) string {
	if n.Tag == "!!bool" {
		var b bool
		if err := n.Decode(&b); err == nil {
			if b {
				return "1"
			}
			return "0"
		}
	}
	return n.Value
}

// Apply sets the profile's preset, when present, then its parameters.
func (p *Profile) Apply(cfg *svtav1.EncoderConfig) error {
	if p.Preset != nil {
		if err := cfg.SetParameter("preset", fmt.Sprint(*p.Preset)); err != nil {
			return err
		}
	}
	return cfg.SetParameters(p.Params)
}
