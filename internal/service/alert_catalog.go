package service

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smartcity/trafficpulse/internal/domain"
)

//go:embed alert_catalog.yaml
var defaultCatalogYAML []byte

// CatalogEntry holds the templates for one alert category
type CatalogEntry struct {
	Category     domain.AlertCategory `yaml:"category"`
	Titles       []string             `yaml:"titles"`
	Descriptions []string             `yaml:"descriptions"`
	Values       []string             `yaml:"values"`
	Subtypes     []string             `yaml:"subtypes"`
}

// AlertCatalog is the fixed set of templates the simulator draws from
type AlertCatalog struct {
	Locations []string       `yaml:"locations"`
	Entries   []CatalogEntry `yaml:"entries"`
}

// DefaultAlertCatalog returns the embedded catalog
func DefaultAlertCatalog() (AlertCatalog, error) {
	return ParseAlertCatalog(defaultCatalogYAML)
}

// LoadAlertCatalog reads a catalog file; an empty path selects the embedded one
func LoadAlertCatalog(path string) (AlertCatalog, error) {
	if path == "" {
		return DefaultAlertCatalog()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return AlertCatalog{}, fmt.Errorf("alerts: read catalog: %w", err)
	}
	return ParseAlertCatalog(content)
}

// ParseAlertCatalog decodes and validates a YAML catalog
func ParseAlertCatalog(data []byte) (AlertCatalog, error) {
	var c AlertCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return AlertCatalog{}, fmt.Errorf("alerts: parse catalog: %w", err)
	}
	if len(c.Locations) == 0 {
		return AlertCatalog{}, errors.New("alerts: catalog must define at least one location")
	}
	if len(c.Entries) == 0 {
		return AlertCatalog{}, errors.New("alerts: catalog must define at least one entry")
	}
	for i, e := range c.Entries {
		if !e.Category.Valid() {
			return AlertCatalog{}, fmt.Errorf("alerts: entry %d has unknown category %q", i, e.Category)
		}
		if len(e.Titles) == 0 || len(e.Descriptions) == 0 {
			return AlertCatalog{}, fmt.Errorf("alerts: entry %s needs titles and descriptions", e.Category)
		}
	}
	return c, nil
}
