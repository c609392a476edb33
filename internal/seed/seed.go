// Package seed parses category seed files.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// File is the layout of a seed file.
type File struct {
	Categories []domain.CategorySeed `yaml:"categories"`
}

// Defaults returns the embedded default category set.
func Defaults() ([]domain.CategorySeed, error) {
	return Parse(defaultsYAML)
}

// Load reads a seed file from disk.
func Load(path string) ([]domain.CategorySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML. Names are trimmed; duplicate
// categories and duplicate topics within a category are rejected.
func Parse(data []byte) ([]domain.CategorySeed, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]bool, len(f.Categories))
	for i := range f.Categories {
		c := &f.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("category %d: name is required", i)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("category %q listed twice", c.Name)
		}
		seen[c.Name] = true

		topics := make(map[string]bool, len(c.Topics))
		for j, t := range c.Topics {
			t = strings.TrimSpace(t)
			if t == "" {
				return nil, fmt.Errorf("category %q: topic %d is empty", c.Name, j)
			}
			if topics[t] {
				return nil, fmt.Errorf("category %q: topic %q listed twice", c.Name, t)
			}
			topics[t] = true
			c.Topics[j] = t
		}
	}
	return f.Categories, nil
}
