package source

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrNotFound = goerr.New("source object not found")

// Store abstracts the data directory holding buildings.json and the
// per-building co.json / violation files, whether on local disk or in a
// GCS bucket.
type Store interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Close() error
}

const (
	buildingsFile  = "buildings.json"
	coFile         = "co.json"
	violationsFile = "violations.json"
)

// Service reads and writes the CO data set through a Store.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// FromPath returns a Service backed by a GCS bucket when the path has a
// gs:// scheme, or by a local directory otherwise.
func FromPath(ctx context.Context, dataDir string) (*Service, error) {
	if bucket, prefix, ok := parseGCSPath(dataDir); ok {
		store, err := NewGCS(ctx, bucket, prefix)
		if err != nil {
			return nil, err
		}
		return New(store), nil
	}
	return New(NewLocal(dataDir)), nil
}

func parseGCSPath(path string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(path, "gs://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, prefix, bucket != ""
}

func (s *Service) Buildings(ctx context.Context) ([]*model.Building, error) {
	data, err := s.store.Read(ctx, buildingsFile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read buildings file")
	}

	var buildings []*model.Building
	if err := json.Unmarshal(data, &buildings); err != nil {
		return nil, goerr.Wrap(err, "failed to parse buildings file")
	}
	return buildings, nil
}

func (s *Service) SaveBuildings(ctx context.Context, buildings []*model.Building) error {
	data, err := json.MarshalIndent(buildings, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal buildings")
	}
	if err := s.store.Write(ctx, buildingsFile, data); err != nil {
		return goerr.Wrap(err, "failed to write buildings file")
	}
	return nil
}

func (s *Service) COData(ctx context.Context, buildingID string) (*model.COData, error) {
	data, err := s.store.Read(ctx, buildingID+"/"+coFile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read CO file", goerr.V("buildingID", buildingID))
	}

	var co model.COData
	if err := json.Unmarshal(data, &co); err != nil {
		return nil, goerr.Wrap(err, "failed to parse CO file", goerr.V("buildingID", buildingID))
	}
	return &co, nil
}

func (s *Service) SaveCOData(ctx context.Context, co *model.COData) error {
	data, err := json.MarshalIndent(co, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal CO data", goerr.V("buildingID", co.BIN))
	}
	if err := s.store.Write(ctx, co.BIN+"/"+coFile, data); err != nil {
		return goerr.Wrap(err, "failed to write CO file", goerr.V("buildingID", co.BIN))
	}
	return nil
}

func (s *Service) SaveViolations(ctx context.Context, buildingID string, raw []byte) error {
	if err := s.store.Write(ctx, buildingID+"/"+violationsFile, raw); err != nil {
		return goerr.Wrap(err, "failed to write violations file", goerr.V("buildingID", buildingID))
	}
	return nil
}

func (s *Service) Close() error {
	return s.store.Close()
}
