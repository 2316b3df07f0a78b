package game

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/eoc-response-sim/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed data/decisions.yaml
var defaultCatalog []byte

// CatalogFile is the decision catalog file name looked up by DataLoader
const CatalogFile = "decisions.yaml"

// OptionTemplate is one response option as written in the catalog
type OptionTemplate struct {
	Text               string                     `yaml:"text"`
	ResourceCost       map[types.ResourceKind]int `yaml:"resource_cost"`
	EffectivenessScore int                        `yaml:"effectiveness_score"`
}

// DecisionTemplate is a catalog entry that can be turned into a live decision
type DecisionTemplate struct {
	Key         string           `yaml:"key"`
	Description string           `yaml:"description"`
	Options     []OptionTemplate `yaml:"options"`
}

// Instantiate builds a decision with the given id from the template
func (t DecisionTemplate) Instantiate(id string) types.Decision {
	options := make([]types.DecisionOption, len(t.Options))
	for i, opt := range t.Options {
		cost := make(types.ResourceAmounts, len(opt.ResourceCost))
		for kind, amount := range opt.ResourceCost {
			cost[kind] = amount
		}
		options[i] = types.DecisionOption{
			Text:               opt.Text,
			ResourceCost:       cost,
			EffectivenessScore: opt.EffectivenessScore,
		}
	}
	return types.Decision{
		ID:          id,
		Description: t.Description,
		Options:     options,
	}
}

// Catalog holds decision templates per disaster type
type Catalog map[types.DisasterType][]DecisionTemplate

// Templates returns the templates for a disaster type
func (c Catalog) Templates(disaster types.DisasterType) []DecisionTemplate {
	return c[disaster]
}

// Validate checks disaster types, resource names and option counts
func (c Catalog) Validate() error {
	for disaster, templates := range c {
		if !disaster.Valid() {
			return fmt.Errorf("unknown disaster type %q", disaster)
		}
		seen := make(map[string]bool, len(templates))
		for _, tmpl := range templates {
			if tmpl.Key == "" {
				return fmt.Errorf("%s: decision without key", disaster)
			}
			if seen[tmpl.Key] {
				return fmt.Errorf("%s: duplicate decision key %q", disaster, tmpl.Key)
			}
			seen[tmpl.Key] = true
			if len(tmpl.Options) < 2 {
				return fmt.Errorf("%s/%s: decision needs at least two options", disaster, tmpl.Key)
			}
			for _, opt := range tmpl.Options {
				for kind := range opt.ResourceCost {
					if !kind.Valid() {
						return fmt.Errorf("%s/%s: unknown resource %q", disaster, tmpl.Key, kind)
					}
				}
			}
		}
	}
	return nil
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse decision catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid decision catalog: %w", err)
	}
	return catalog, nil
}

// DefaultCatalog returns the catalog compiled into the binary
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return catalog
}

// DataLoader handles loading game data from files
type DataLoader struct {
	basePath string
}

// NewDataLoader creates a new data loader
func NewDataLoader(basePath string) *DataLoader {
	return &DataLoader{
		basePath: basePath,
	}
}

// LoadCatalog loads the decision catalog from the loader's directory.
// A missing file falls back to the built-in catalog.
func (dl *DataLoader) LoadCatalog() (Catalog, error) {
	if dl.basePath == "" {
		return DefaultCatalog(), nil
	}
	path := filepath.Join(dl.basePath, CatalogFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read decision catalog: %w", err)
	}
	return ParseCatalog(data)
}
