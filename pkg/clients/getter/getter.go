package getter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter"
)

// Getter is an interface which defines interactions for fetching
// remote configuration documents
type Getter interface {
	// GetFile fetches the document at uri and writes it to dst,
	// uri may use any source supported by go-getter such as http,
	// https, s3 or git
	GetFile(uri, dst string) error
	// SetForce causes fetched documents to overwrite the destination
	SetForce(force bool)
}

// GetterImpl is a concrete implementation of the Getter interface
type GetterImpl struct {
	force bool
	get   func(uri, dst, pwd string) error
}

// NewGetter creates a new Getter, when force is set existing
// destinations are overwritten
func NewGetter(force bool) *GetterImpl {
	gi := &GetterImpl{
		force: force,
		get: func(uri, dst, pwd string) error {
			c := &getter.Client{
				Ctx:     context.Background(),
				Src:     uri,
				Dst:     dst,
				Pwd:     pwd,
				Mode:    getter.ClientModeFile,
				Options: []getter.ClientOption{},
			}

			return c.Get()
		},
	}

	return gi
}

// SetForce sets the force flag causing fetches to overwrite the
// destination
func (g *GetterImpl) SetForce(force bool) {
	g.force = force
}

// GetFile fetches the document at uri and stores it at dst.
//
// When a document already exists at the destination it is only
// fetched again if force was set.
func (g *GetterImpl) GetFile(uri, dst string) error {
	_, err := os.Stat(dst)
	if err == nil {
		if !g.force {
			return nil
		}

		err := os.RemoveAll(dst)
		if err != nil {
			return fmt.Errorf("destination file exists, unable to delete: %w", err)
		}
	}

	err = os.MkdirAll(filepath.Dir(dst), os.ModePerm)
	if err != nil {
		return fmt.Errorf("unable to create destination folder: %w", err)
	}

	pwd, err := os.Getwd()
	if err != nil {
		return err
	}

	err = g.get(uri, dst, pwd)
	if err != nil {
		return fmt.Errorf("unable to fetch document from %s: %w", uri, err)
	}

	return nil
}
