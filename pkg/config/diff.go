package config

import (
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// Change is a single difference between the configuration a cluster was
// created with and the requested configuration
type Change struct {
	Parameter      string      `json:"parameter"`
	CurrentValue   interface{} `json:"currentValue"`
	RequestedValue interface{} `json:"requestedValue"`
}

// Diff compares two configuration documents and returns the changed
// parameters, parameters are addressed with their full path such as
// "Scheduling.SlurmQueues[0].ComputeResources[0].MaxCount"
func Diff(current, requested []byte) ([]Change, error) {
	cur, err := flattenDocument(current)
	if err != nil {
		return nil, fmt.Errorf("unable to read current configuration: %s", err)
	}

	req, err := flattenDocument(requested)
	if err != nil {
		return nil, fmt.Errorf("unable to read requested configuration: %s", err)
	}

	params := map[string]bool{}
	for p := range cur {
		params[p] = true
	}
	for p := range req {
		params[p] = true
	}

	changes := []Change{}
	for p := range params {
		if !reflect.DeepEqual(cur[p], req[p]) {
			changes = append(changes, Change{
				Parameter:      p,
				CurrentValue:   cur[p],
				RequestedValue: req[p],
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Parameter < changes[j].Parameter
	})

	return changes, nil
}

func flattenDocument(doc []byte) (map[string]interface{}, error) {
	var root map[string]interface{}
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, err
	}

	flat := map[string]interface{}{}
	flatten("", root, flat)

	return flat, nil
}

func flatten(path string, v interface{}, out map[string]interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, cv := range t {
			p := k
			if path != "" {
				p = path + "." + k
			}

			flatten(p, cv, out)
		}
	case []interface{}:
		for i, cv := range t {
			flatten(fmt.Sprintf("%s[%d]", path, i), cv, out)
		}
	default:
		if path != "" {
			out[path] = v
		}
	}
}
