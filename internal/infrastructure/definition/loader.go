// Package definition loads authored workflow definitions from YAML files
// and serves them through a read-only registry.
package definition

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/civicdesk/caseflow/internal/domain/entity"
)

// Loader scans a directory for *.yaml / *.yml workflow definition files.
type Loader struct{}

// NewLoader creates a definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively parses every YAML file under dir and validates each
// definition.
func (l *Loader) LoadAll(dir string) ([]*entity.WorkflowDefinition, error) {
	var defs []*entity.WorkflowDefinition

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		def, err := l.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		defs = append(defs, def)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	return defs, nil
}

// LoadFile parses and validates a single definition file.
func (l *Loader) LoadFile(path string) (*entity.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var def entity.WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
