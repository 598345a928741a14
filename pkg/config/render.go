package config

import (
	"fmt"
	"strings"

	"github.com/infinytum/raymond/v2"
)

// Render processes the handlebars expressions in a configuration
// document, substituting the given variables
func Render(doc []byte, vars map[string]interface{}) ([]byte, error) {
	tmpl, err := raymond.Parse(string(doc))
	if err != nil {
		return nil, fmt.Errorf("error parsing configuration template: %s", err)
	}

	tmpl.RegisterHelpers(map[string]interface{}{
		"quote": func(in string) string {
			return fmt.Sprintf(`"%s"`, in)
		},
		"trim": func(in string) string {
			return strings.TrimSpace(in)
		},
	})

	result, err := tmpl.Exec(vars)
	if err != nil {
		return nil, fmt.Errorf("error processing configuration template: %s", err)
	}

	return []byte(result), nil
}

// ParseVars parses "name=value" pairs as passed on the command line,
// values containing '=' are preserved
func ParseVars(pairs []string) (map[string]interface{}, error) {
	vars := map[string]interface{}{}

	for _, p := range pairs {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid variable %q, variables must be specified as name=value", p)
		}

		vars[parts[0]] = parts[1]
	}

	return vars, nil
}
