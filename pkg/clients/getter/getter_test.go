package getter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setupGetter(t *testing.T, force bool, err error) (string, Getter, *string, *string) {
	fp := t.TempDir()

	getSrc := ""
	getDst := ""

	g := &GetterImpl{
		force: force,
		get: func(uri, dst, pwd string) error {
			getSrc = uri
			getDst = dst

			return err
		},
	}

	return fp, g, &getSrc, &getDst
}

func TestGetsFile(t *testing.T) {
	tmpDir, g, gs, gd := setupGetter(t, false, nil)
	outFile := filepath.Join(tmpDir, "cache", "cluster-config.yaml")
	url := "https://example.com/configs/cluster-config.yaml"

	err := g.GetFile(url, outFile)
	assert.NoError(t, err)

	assert.Equal(t, url, *gs)
	assert.Equal(t, outFile, *gd)
}

func TestDoesNotGetFileWhenExists(t *testing.T) {
	tmpDir, g, gs, gd := setupGetter(t, false, nil)
	outFile := filepath.Join(tmpDir, "cluster-config.yaml")
	url := "https://example.com/configs/cluster-config.yaml"

	os.WriteFile(outFile, []byte("Region: eu-west-1\n"), os.ModePerm)

	err := g.GetFile(url, outFile)
	assert.NoError(t, err)

	assert.Equal(t, "", *gs)
	assert.Equal(t, "", *gd)
}

func TestGetsFileWhenExistsAndForceTrue(t *testing.T) {
	tmpDir, g, gs, gd := setupGetter(t, true, nil)
	outFile := filepath.Join(tmpDir, "cluster-config.yaml")
	url := "https://example.com/configs/cluster-config.yaml"

	os.WriteFile(outFile, []byte("Region: eu-west-1\n"), os.ModePerm)

	err := g.GetFile(url, outFile)
	assert.NoError(t, err)

	assert.Equal(t, url, *gs)
	assert.Equal(t, outFile, *gd)
}

func TestGetFileCreatesDestinationFolder(t *testing.T) {
	tmpDir, g, _, _ := setupGetter(t, false, nil)
	outFile := filepath.Join(tmpDir, "nested", "cache", "cluster-config.yaml")

	err := g.GetFile("https://example.com/c.yaml", outFile)
	assert.NoError(t, err)

	assert.DirExists(t, filepath.Dir(outFile))
}
