package workflows

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type packFile struct {
	Workflows []Workflow `yaml:"workflows"`
}

// LoadPack merges the workflows defined in a YAML pack file into the
// registry. A pack entry with a builtin's name replaces the builtin.
func (r *Registry) LoadPack(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workflow pack: %w", err)
	}

	var pack packFile
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		return fmt.Errorf("parse workflow pack %s: %w", path, err)
	}
	if len(pack.Workflows) == 0 {
		return fmt.Errorf("workflow pack %s defines no workflows", path)
	}

	for i, workflow := range pack.Workflows {
		if strings.TrimSpace(workflow.Name) == "" {
			return fmt.Errorf("workflow pack %s: entry %d has no name", path, i)
		}
		if strings.TrimSpace(workflow.Template) == "" {
			return fmt.Errorf("workflow pack %s: workflow %q has no template", path, workflow.Name)
		}
		r.add(workflow)
	}
	return nil
}
