package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesVariables(t *testing.T) {
	doc := []byte("Region: {{region}}\n")

	out, err := Render(doc, map[string]interface{}{"region": "eu-west-1"})
	require.NoError(t, err)

	assert.Equal(t, "Region: eu-west-1\n", string(out))
}

func TestRenderLeavesPlainDocumentsUntouched(t *testing.T) {
	doc := []byte("Region: eu-west-1\n")

	out, err := Render(doc, nil)
	require.NoError(t, err)

	assert.Equal(t, string(doc), string(out))
}

func TestRenderSubstitutesMissingVariablesWithEmpty(t *testing.T) {
	doc := []byte("KeyName: {{key_name}}\n")

	out, err := Render(doc, map[string]interface{}{})
	require.NoError(t, err)

	assert.Equal(t, "KeyName: \n", string(out))
}

func TestRenderQuoteHelper(t *testing.T) {
	doc := []byte("Value: {{quote name}}")

	out, err := Render(doc, map[string]interface{}{"name": "my cluster"})
	require.NoError(t, err)

	assert.Equal(t, `Value: "my cluster"`, string(out))
}

func TestParseVars(t *testing.T) {
	vars, err := ParseVars([]string{"region=eu-west-1", "subnet=subnet-abc123"})
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", vars["region"])
	assert.Equal(t, "subnet-abc123", vars["subnet"])
}

func TestParseVarsPreservesEqualsInValue(t *testing.T) {
	vars, err := ParseVars([]string{"filter=key=value"})
	require.NoError(t, err)

	assert.Equal(t, "key=value", vars["filter"])
}

func TestParseVarsFailsWithoutValue(t *testing.T) {
	_, err := ParseVars([]string{"region"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name=value")
}
