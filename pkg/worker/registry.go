package worker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qdispatch/qdispatch/pkg/backend"
	"github.com/qdispatch/qdispatch/pkg/logging"
	"github.com/qdispatch/qdispatch/pkg/transport"
)

// Record describes one deployed worker in the registry file written by the
// deployment tooling.
type Record struct {
	ID       string          `yaml:"id" json:"id"`
	Name     string          `yaml:"name" json:"name"`
	Family   string          `yaml:"family,omitempty" json:"family,omitempty"`
	Endpoint string          `yaml:"endpoint" json:"endpoint"`
	Backend  backend.Backend `yaml:"backend" json:"backend"`
}

// Registry is the set of deployed workers known to the client
type Registry struct {
	Workers []Record `yaml:"workers" json:"workers"`
}

// LoadRegistry reads a worker registry file. The file is YAML; JSON
// documents parse as well.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read worker registry %s: %w", path, err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse worker registry %s: %w", path, err)
	}

	for i, rec := range reg.Workers {
		if rec.ID == "" {
			return nil, fmt.Errorf("worker %d in registry %s has no id", i, path)
		}
		if rec.Endpoint == "" {
			return nil, fmt.Errorf("worker %q in registry %s has no endpoint", rec.ID, path)
		}
	}
	return &reg, nil
}

// Filter returns the records belonging to the given family; an empty family
// matches everything.
func (r *Registry) Filter(family string) []Record {
	if family == "" {
		return append([]Record(nil), r.Workers...)
	}
	out := []Record{}
	for _, rec := range r.Workers {
		if rec.Family == family {
			out = append(out, rec)
		}
	}
	return out
}

// Get returns the record with the given id
func (r *Registry) Get(id string) (Record, bool) {
	for _, rec := range r.Workers {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Build creates worker handles for every record in the given family, each
// with its own HTTP transport client. An empty family builds all of them.
func (r *Registry) Build(family string, logger *logging.Logger) []*Worker {
	records := r.Filter(family)
	workers := make([]*Worker, len(records))
	for i, rec := range records {
		b := rec.Backend
		workers[i] = New(rec.ID, rec.Name, rec.Family, rec.Endpoint, &b, transport.NewHTTPClient(logger), logger)
	}
	return workers
}
