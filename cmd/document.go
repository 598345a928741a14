package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gantry-labs/gantry/pkg/clients/getter"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
	"gopkg.in/yaml.v3"
)

// loadDocument fetches and renders a configuration document, src may be
// a local path or any URL supported by go-getter such as s3:// or https
func loadDocument(g getter.Getter, src string, vars []string, varsFile string) ([]byte, error) {
	raw, err := fetchDocument(g, src)
	if err != nil {
		return nil, err
	}

	tv, err := templateVars(vars, varsFile)
	if err != nil {
		return nil, err
	}

	return config.Render(raw, tv)
}

func fetchDocument(g getter.Getter, src string) ([]byte, error) {
	if utils.IsLocalFile(src) {
		return os.ReadFile(src)
	}

	dst := filepath.Join(utils.ConfigCacheFolder(src), filepath.Base(src))

	err := g.GetFile(src, dst)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch the configuration document %s: %w", src, err)
	}

	return os.ReadFile(dst)
}

// templateVars merges the substitution variables from the optional
// variables file with the name=value pairs given on the command line,
// command line values win
func templateVars(pairs []string, varsFile string) (map[string]interface{}, error) {
	vars := map[string]interface{}{}

	if varsFile != "" {
		d, err := os.ReadFile(varsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read the variables file %s: %w", varsFile, err)
		}

		if err := yaml.Unmarshal(d, &vars); err != nil {
			return nil, fmt.Errorf("unable to parse the variables file %s: %w", varsFile, err)
		}
	}

	flags, err := config.ParseVars(pairs)
	if err != nil {
		return nil, err
	}

	for k, v := range flags {
		vars[k] = v
	}

	return vars, nil
}

// resolveRegion picks the region for a command, the flag wins over the
// configuration document, an empty result defers to the AWS environment
func resolveRegion(flag string, doc []byte) string {
	if flag != "" {
		return flag
	}

	return documentRegion(doc)
}

// documentRegion peeks at the Region key of a rendered document, the
// strict parse happens later so other keys are ignored here
func documentRegion(doc []byte) string {
	var peek struct {
		Region string `yaml:"Region"`
	}

	yaml.Unmarshal(doc, &peek)

	return peek.Region
}
