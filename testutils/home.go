package testutils

import (
	"testing"

	"github.com/gantry-labs/gantry/pkg/utils"
)

// SetupHome points the gantry home folder at a temporary directory so
// tests never touch the real configuration cache
func SetupHome(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv(utils.HomeEnvName(), dir)

	return dir
}
