package config

import (
	"fmt"

	"github.com/meur/comparador/internal/schema"
	"github.com/meur/comparador/internal/validate"
)

// IndicatorRanges builds the validator range table: the strict preset when
// enabled, then explicit ranges on top. Keys must name a declared indicator.
func (c *Config) IndicatorRanges(registry *schema.Registry) (map[string]validate.Range, error) {
	known := make(map[string]bool)
	for _, cat := range registry.Categories() {
		keys, err := registry.IndicatorsFor(cat)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			known[k] = true
		}
	}

	ranges := map[string]validate.Range{}
	if c.Validation.Strict {
		ranges = validate.Strict(registry)
	}
	for key, r := range c.Validation.Ranges {
		if !known[key] {
			return nil, fmt.Errorf("validation.ranges: unknown indicator %q", key)
		}
		ranges[key] = validate.Range{Min: r.Min, Max: r.Max, ExclusiveMin: r.ExclusiveMin}
	}
	return ranges, nil
}
