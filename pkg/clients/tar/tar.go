package tar

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ryanuber/go-glob"
)

type TarGzOptions struct {
	// OmitRoot when set to true ignores the top level directory in the
	// archive, only adding sub directories and files
	OmitRoot bool
	// ZipContents compresses the archive with gzip
	ZipContents bool
	// StripFolders flattens the archive, all files are placed at the root
	StripFolders bool
}

type TarGz struct {
}

// Create writes an archive containing the given sources to buf.
//
// Sources may be files or directories, ignore patterns are glob matched
// against the path of every candidate file.
func (tg *TarGz) Create(buf io.Writer, options *TarGzOptions, src []string, ignore ...string) error {
	if options == nil {
		options = &TarGzOptions{}
	}

	var w io.Writer = buf

	var zr *gzip.Writer
	if options.ZipContents {
		zr = gzip.NewWriter(buf)
		w = zr
	}

	tw := tar.NewWriter(w)

	for _, path := range src {
		fi, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("unable to read source %s: %w", path, err)
		}

		// the top level is the name of the folder containing the source
		topLevel := filepath.Dir(path)
		if fi.IsDir() && options.OmitRoot {
			topLevel = path
		}

		err = filepath.Walk(path, func(file string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			for _, i := range ignore {
				if glob.Glob(i, filepath.ToSlash(file)) {
					if fi.IsDir() {
						return filepath.SkipDir
					}

					return nil
				}
			}

			name := filepath.ToSlash(strings.TrimPrefix(file, topLevel))
			name = strings.TrimLeft(name, "/")

			if options.StripFolders {
				if fi.IsDir() {
					return nil
				}

				name = fi.Name()
			}

			if name == "" {
				return nil
			}

			header, err := tar.FileInfoHeader(fi, name)
			if err != nil {
				return err
			}
			header.Name = name

			if err := tw.WriteHeader(header); err != nil {
				return err
			}

			if fi.IsDir() {
				return nil
			}

			data, err := os.Open(file)
			if err != nil {
				return err
			}
			defer data.Close()

			_, err = io.Copy(tw, data)

			return err
		})

		if err != nil {
			return fmt.Errorf("unable to archive %s: %w", path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}

	if zr != nil {
		return zr.Close()
	}

	return nil
}

// Extract unpacks the archive read from src into the directory dst
func (tg *TarGz) Extract(src io.Reader, gzipped bool, dst string) error {
	var zr io.Reader = src
	var err error

	if gzipped {
		zr, err = gzip.NewReader(src)
		if err != nil {
			return err
		}
	}

	tr := tar.NewReader(zr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		// guard against path traversal
		if !validRelPath(header.Name) {
			return fmt.Errorf("archive contains an invalid path %q", header.Name)
		}

		target := filepath.Join(dst, header.Name)

		switch header.Typeflag {
		case tar.TypeDir:
			if _, err := os.Stat(target); err != nil {
				if err := os.MkdirAll(target, 0755); err != nil {
					return err
				}
			}
		case tar.TypeReg:
			// archives created with OmitRoot do not contain directory
			// entries for nested files
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}

			f, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR, os.FileMode(header.Mode))
			if err != nil {
				return err
			}

			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}

			f.Close()
		}
	}

	return nil
}

func validRelPath(p string) bool {
	if p == "" || strings.Contains(p, `\`) || strings.HasPrefix(p, "/") || strings.Contains(p, "../") {
		return false
	}

	return true
}
