package source

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// GCS stores objects in a Google Cloud Storage bucket under an optional
// key prefix.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Store = &GCS{}

func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) object(name string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(g.prefix + name)
}

func (g *GCS) Read(ctx context.Context, name string) ([]byte, error) {
	rc, err := g.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "object not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("name", name))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("name", name))
	}
	return data, nil
}

func (g *GCS) Write(ctx context.Context, name string, data []byte) error {
	w := g.object(name).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("name", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object", goerr.V("name", name))
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
