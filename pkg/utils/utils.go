package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kennygrant/sanitize"
)

// HomeFolder returns the users homefolder this will be $HOME on windows and mac and
// USERPROFILE on windows
func HomeFolder() string {
	return os.Getenv(HomeEnvName())
}

// HomeEnvName returns the environment variable used to store the home path
func HomeEnvName() string {
	if runtime.GOOS == "windows" {
		return "USERPROFILE"
	}

	return "HOME"
}

// GantryHome returns the location of the gantry
// folder, usually $HOME/.gantry
func GantryHome() string {
	return filepath.Join(HomeFolder(), "/.gantry")
}

// ConfigCacheFolder returns the full storage path used when fetching
// a configuration document from a remote location
func ConfigCacheFolder(uri string) string {
	// replace any ? with / before sanitizing
	uri = strings.Replace(uri, "?", "/", -1)

	uri = sanitize.Path(uri)

	return filepath.Join(GantryHome(), "configs", uri)
}

// ExportStagingFolder creates the staging directory used when re-packing
// exported log archives
func ExportStagingFolder(name string) string {
	name = sanitize.Path(name)
	dir := filepath.Join(GantryHome(), "exports", name)

	os.MkdirAll(dir, 0755)

	return dir
}

// IsLocalFile tests if the given path resolves to a file
// in the current filesystem
func IsLocalFile(path string) bool {
	path, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	f, err := os.Stat(path)
	if err != nil || f == nil {
		return false
	}

	return !f.IsDir()
}

// ArtifactBucketName returns the name of the S3 bucket used to store
// templates, configuration documents and exported logs for the given
// account and region. The name is stable for an account and region pair.
func ArtifactBucketName(accountID, region string) string {
	h := sha256.Sum256([]byte(accountID + region))

	return fmt.Sprintf("gantry-%s-%s", region, hex.EncodeToString(h[:])[:12])
}

// ParseTimestamp parses a timestamp expressed either as RFC3339
// or as milliseconds since the epoch
func ParseTimestamp(ts string) (time.Time, error) {
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s, expected RFC3339 or milliseconds since the epoch: %w", ts, err)
	}

	return t.UTC(), nil
}

// HashString returns a sha256 hash of the given string
func HashString(content string) (string, error) {
	r := bytes.NewReader([]byte(content))

	hf := sha256.New()
	_, err := io.Copy(hf, r)
	if err != nil {
		return "", err
	}

	return "h1:" + base64.StdEncoding.EncodeToString(hf.Sum(nil)), nil
}
