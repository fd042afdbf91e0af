package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidManifest marks a report that parsed as JSON but is missing
// required fields. Decode errors happen before any store work begins.
var ErrInvalidManifest = errors.New("invalid manifest")

// Decode reads a build tool dependency report from r and returns the
// decoded manifest. Unknown fields are ignored; a missing project name,
// a missing configurations array, or a dependency without a name fails
// the decode.
func Decode(r io.Reader) (*ProjectManifest, error) {
	var m ProjectManifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse dependency report: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ProjectManifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: project name is required", ErrInvalidManifest)
	}
	if m.Configurations == nil {
		return fmt.Errorf("%w: configurations array is required", ErrInvalidManifest)
	}
	for _, c := range m.Configurations {
		if c.Name == "" {
			return fmt.Errorf("%w: configuration without a name", ErrInvalidManifest)
		}
		for i := range c.Dependencies {
			if err := validateDependency(c.Name, &c.Dependencies[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDependency(config string, d *Dependency) error {
	if d.Name == "" {
		return fmt.Errorf("%w: dependency without a name in configuration %q", ErrInvalidManifest, config)
	}
	for i := range d.Children {
		if err := validateDependency(config, &d.Children[i]); err != nil {
			return err
		}
	}
	return nil
}
