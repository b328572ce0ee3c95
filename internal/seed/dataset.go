// Package seed holds the demo dataset used to populate empty collections.
package seed

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/schema"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Row is one demo institution
type Row struct {
	Name       string             `yaml:"name"`
	Color      string             `yaml:"color"`
	Indicators map[string]float64 `yaml:"indicators"`
}

// Dataset holds demo rows per category
type Dataset map[models.Category][]Row

var demo = mustParse(demoYAML)

// Demo returns the embedded dataset. It is parsed once and must not be
// modified by callers.
func Demo() Dataset {
	return demo
}

// Parse decodes a YAML dataset keyed by category name
func Parse(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return ds, nil
}

func mustParse(data []byte) Dataset {
	ds, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return ds
}

// Check verifies that every category is known and every row carries exactly
// the declared indicators
func (d Dataset) Check(registry *schema.Registry) error {
	categories := make([]string, 0, len(d))
	for c := range d {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, name := range categories {
		c := models.Category(name)
		keys, err := registry.IndicatorsFor(c)
		if err != nil {
			return err
		}
		for _, row := range d[c] {
			if len(row.Indicators) != len(keys) {
				return fmt.Errorf("%s/%s: want %d indicators, got %d", c, row.Name, len(keys), len(row.Indicators))
			}
			for _, k := range keys {
				if _, ok := row.Indicators[k]; !ok {
					return fmt.Errorf("%s/%s: missing indicator %q", c, row.Name, k)
				}
			}
		}
	}
	return nil
}

// Items returns the demo rows of a category as canonical items without ids
func (d Dataset) Items(c models.Category) []models.Item {
	rows := d[c]
	items := make([]models.Item, 0, len(rows))
	for _, row := range rows {
		indicators := make(map[string]*float64, len(row.Indicators))
		for k, v := range row.Indicators {
			indicators[k] = models.Value(v)
		}
		items = append(items, models.Item{
			Name:       row.Name,
			Category:   c,
			Color:      row.Color,
			Indicators: indicators,
		})
	}
	return items
}
