package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/dmb/pkg/models"
)

// HelperFile represents the top-level structure of helpers.yaml.
type HelperFile struct {
	Version string                 `yaml:"version"`
	Helpers []models.HelperBinding `yaml:"helpers"`
}

// HelperStore reads and writes the helper registry file.
type HelperStore interface {
	// Load returns the configured bindings, or the defaults when the file
	// does not exist.
	Load() ([]models.HelperBinding, error)
	// Save writes bindings to the file, replacing it atomically.
	Save(bindings []models.HelperBinding) error
	Path() string
}

type fileHelperStore struct {
	path     string
	defaults []models.HelperBinding
}

// NewHelperStore creates a HelperStore backed by the YAML file at path.
func NewHelperStore(path string, defaults []models.HelperBinding) HelperStore {
	return &fileHelperStore{path: path, defaults: defaults}
}

func (s *fileHelperStore) Path() string {
	return s.path
}

func (s *fileHelperStore) Load() ([]models.HelperBinding, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			out := make([]models.HelperBinding, len(s.defaults))
			copy(out, s.defaults)
			return out, nil
		}
		return nil, fmt.Errorf("loading helpers: %w", err)
	}

	var hf HelperFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("loading helpers: parsing YAML: %w", err)
	}
	return hf.Helpers, nil
}

func (s *fileHelperStore) Save(bindings []models.HelperBinding) error {
	data, err := yaml.Marshal(HelperFile{Version: "1.0", Helpers: bindings})
	if err != nil {
		return fmt.Errorf("saving helpers: marshalling YAML: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("saving helpers: %w", err)
	}
	return nil
}
