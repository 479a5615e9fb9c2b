// Package catalog holds the immutable control catalog. The catalog is
// loaded once at process start and is read-only to the rest of the system.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/veridianhq/veridian/internal/apperr"
	"github.com/veridianhq/veridian/internal/models"
)

//go:embed controls.yaml
var defaultCatalogYAML []byte

// Catalog is an immutable, code-indexed set of controls.
type Catalog struct {
	byCode  map[string]models.Control
	ordered []models.Control
}

type catalogFile struct {
	Controls []models.Control `yaml:"controls"`
}

// Load reads a catalog from the YAML file at path. An empty path loads the
// embedded default catalog.
func Load(path string) (*Catalog, error) {
	data := defaultCatalogYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Controls) == 0 {
		return nil, fmt.Errorf("parse catalog: no controls defined")
	}

	byCode := make(map[string]models.Control, len(file.Controls))
	for _, c := range file.Controls {
		if c.Code == "" {
			return nil, fmt.Errorf("parse catalog: control with empty code")
		}
		if _, dup := byCode[c.Code]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate control code %q", c.Code)
		}
		byCode[c.Code] = c
	}

	ordered := make([]models.Control, 0, len(byCode))
	for _, c := range byCode {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })

	return &Catalog{byCode: byCode, ordered: ordered}, nil
}

// Get returns the control for the given code.
func (c *Catalog) Get(code string) (models.Control, error) {
	ctrl, ok := c.byCode[code]
	if !ok {
		return models.Control{}, fmt.Errorf("%w: %s", apperr.ErrControlNotFound, code)
	}
	return ctrl, nil
}

// Has reports whether the code exists in the catalog.
func (c *Catalog) Has(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// List returns all controls ordered by code ascending.
func (c *Catalog) List() []models.Control {
	out := make([]models.Control, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Domains returns the distinct control domains, sorted.
func (c *Catalog) Domains() []string {
	seen := map[string]bool{}
	var domains []string
	for _, ctrl := range c.ordered {
		if !seen[ctrl.Domain] {
			seen[ctrl.Domain] = true
			domains = append(domains, ctrl.Domain)
		}
	}
	sort.Strings(domains)
	return domains
}

// Len returns the number of controls.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
