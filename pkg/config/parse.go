package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseCluster parses and validates a cluster definition, fields not
// part of the schema are rejected
func ParseCluster(data []byte) (*ClusterConfig, error) {
	c := &ClusterConfig{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(c)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cluster configuration is empty")
	}

	if err != nil {
		return nil, fmt.Errorf("unable to parse cluster configuration: %s", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// ParseImage parses and validates an image build definition, fields not
// part of the schema are rejected
func ParseImage(data []byte) (*ImageConfig, error) {
	c := &ImageConfig{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(c)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("image configuration is empty")
	}

	if err != nil {
		return nil, fmt.Errorf("unable to parse image configuration: %s", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Marshal serializes a configuration back to yaml
func Marshal(c interface{}) ([]byte, error) {
	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("unable to serialize configuration: %s", err)
	}

	if err := enc.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
