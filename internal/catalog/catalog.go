// Package catalog loads the label sets, class labels and preset definitions
// of the weather-type form from YAML.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the validated, read-only form configuration.
type Catalog struct {
	Codes        domain.Codes
	WeatherTypes domain.CategoryCode
	Classes      domain.CategoryCode
	Templates    []domain.TemplateSpec
	Defaults     domain.InputState
}

type document struct {
	CloudCover   []string              `yaml:"cloud_cover"`
	Season       []string              `yaml:"season"`
	Location     []string              `yaml:"location"`
	WeatherTypes []string              `yaml:"weather_types"`
	Classes      []string              `yaml:"classes"`
	Templates    []domain.TemplateSpec `yaml:"templates"`
	Defaults     *domain.InputState    `yaml:"defaults"`
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	var c Catalog
	var err error
	if c.Codes.CloudCover, err = labelSet("cloud_cover", doc.CloudCover); err != nil {
		return nil, err
	}
	if c.Codes.Season, err = labelSet("season", doc.Season); err != nil {
		return nil, err
	}
	if c.Codes.Location, err = labelSet("location", doc.Location); err != nil {
		return nil, err
	}
	if c.WeatherTypes, err = labelSet("weather_types", doc.WeatherTypes); err != nil {
		return nil, err
	}
	if c.Classes, err = labelSet("classes", doc.Classes); err != nil {
		return nil, err
	}

	if err := c.setTemplates(doc.Templates); err != nil {
		return nil, err
	}

	c.Defaults = domain.DefaultInputState()
	if doc.Defaults != nil {
		c.Defaults = *doc.Defaults
	}
	if err := c.Defaults.Validate(c.Codes); err != nil {
		return nil, fmt.Errorf("catalog defaults: %w", err)
	}

	return &c, nil
}

func labelSet(key string, labels []string) (domain.CategoryCode, error) {
	code, err := domain.NewCategoryCode(labels...)
	if err != nil {
		return domain.CategoryCode{}, fmt.Errorf("catalog %s: %w", key, err)
	}
	return code, nil
}

func (c *Catalog) setTemplates(specs []domain.TemplateSpec) error {
	if len(specs) == 0 {
		return errors.New("catalog templates: at least one template is required")
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Label == "" {
			return errors.New("catalog templates: template without label")
		}
		if seen[s.Label] {
			return fmt.Errorf("catalog templates: duplicate label %q", s.Label)
		}
		seen[s.Label] = true

		if _, ok := c.WeatherTypes.Decode(s.WeatherCode); !ok {
			return fmt.Errorf("catalog template %q: weather_code %d not in weather_types", s.Label, s.WeatherCode)
		}
		overrides := []struct {
			field string
			value string
			code  domain.CategoryCode
		}{
			{domain.FieldCloudCover, s.CloudCover, c.Codes.CloudCover},
			{domain.FieldSeason, s.Season, c.Codes.Season},
			{domain.FieldLocation, s.Location, c.Codes.Location},
		}
		for _, o := range overrides {
			if !o.code.Contains(o.value) {
				return fmt.Errorf("catalog template %q: %w", s.Label,
					&domain.UnknownCategoryError{Field: o.field, Value: o.value})
			}
		}
	}
	c.Templates = specs
	return nil
}
