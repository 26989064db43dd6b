package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/okian/kam/internal/domain/model"
)

// File stores each collection as <dir>/<collection>.json. Writes go to a
// temporary file that is renamed over the old document, so a crash leaves
// either the old or the new version.
type File struct {
	dir string
}

// NewFile creates dir if needed and returns a backend rooted there.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, eris.Wrapf(err, "file: create %s", dir)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(c model.Collection) string {
	return filepath.Join(f.dir, string(c)+".json")
}

func (f *File) Save(_ context.Context, c model.Collection, snap *model.Snapshot) error {
	doc, err := encode(snap, c)
	if err != nil {
		return eris.Wrapf(err, "file: encode %s", c)
	}

	tmp, err := os.CreateTemp(f.dir, string(c)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "file: temp for %s", c)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "file: write %s", c)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "file: sync %s", c)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "file: close %s", c)
	}
	if err := os.Rename(tmp.Name(), f.path(c)); err != nil {
		return eris.Wrapf(err, "file: rename %s", c)
	}
	return nil
}

func (f *File) Load(_ context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{}
	for _, c := range model.Collections {
		doc, err := os.ReadFile(f.path(c))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "file: read %s", c)
		}
		if err := decode(snap, c, doc); err != nil {
			return nil, eris.Wrapf(err, "file: decode %s", c)
		}
	}
	return snap, nil
}

func (f *File) Close() error { return nil }
