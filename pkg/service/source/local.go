package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// Local stores objects as files under a base directory.
type Local struct {
	baseDir string
}

var _ Store = &Local{}

func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (l *Local) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.baseDir, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "file not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("name", name))
	}
	return data, nil
}

func (l *Local) Write(ctx context.Context, name string, data []byte) error {
	path := filepath.Join(l.baseDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create directory", goerr.V("name", name))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write file", goerr.V("name", name))
	}
	return nil
}

func (l *Local) Close() error {
	return nil
}
