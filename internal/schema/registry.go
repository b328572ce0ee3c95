// Package schema declares, per category, the ordered indicator fields and the
// collection they are stored in. It is the only place categories and
// indicators are defined.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meur/comparador/internal/models"
)

// ErrUnknownCategory is returned for a category outside the closed set
var ErrUnknownCategory = errors.New("unknown category")

const (
	UnitPercent = "%"
	UnitMinutes = "min"
)

// Indicator defines one numeric field of a category
type Indicator struct {
	Key     string   // storage key and display label
	Unit    string   // display unit
	Aliases []string // legacy spellings, consulted only by the normalizer
}

// Definition binds a category to its collection and indicators
type Definition struct {
	Category   models.Category
	Collection string
	Indicators []Indicator
}

// Registry is an immutable lookup table built from definitions
type Registry struct {
	defs       []Definition
	byCategory map[models.Category]int
	aliases    map[string]models.Category
}

// New builds a registry. Every category needs at least one indicator and
// indicator keys must be unique within a category.
func New(defs []Definition, categoryAliases map[string]models.Category) (*Registry, error) {
	r := &Registry{
		byCategory: make(map[models.Category]int, len(defs)),
		aliases:    make(map[string]models.Category),
	}
	collections := make(map[string]models.Category)

	for _, d := range defs {
		if d.Category == "" {
			return nil, errors.New("definition without category")
		}
		if _, dup := r.byCategory[d.Category]; dup {
			return nil, fmt.Errorf("category %q declared twice", d.Category)
		}
		if len(d.Indicators) == 0 {
			return nil, fmt.Errorf("category %q has no indicators", d.Category)
		}
		if d.Collection == "" {
			return nil, fmt.Errorf("category %q has no collection", d.Category)
		}
		if other, dup := collections[d.Collection]; dup {
			return nil, fmt.Errorf("collection %q shared by %q and %q", d.Collection, other, d.Category)
		}
		collections[d.Collection] = d.Category

		seen := make(map[string]bool, len(d.Indicators))
		for _, ind := range d.Indicators {
			if ind.Key == "" {
				return nil, fmt.Errorf("category %q has an unnamed indicator", d.Category)
			}
			if seen[ind.Key] {
				return nil, fmt.Errorf("category %q declares indicator %q twice", d.Category, ind.Key)
			}
			seen[ind.Key] = true
		}

		r.byCategory[d.Category] = len(r.defs)
		r.defs = append(r.defs, cloneDefinition(d))
		r.aliases[foldName(string(d.Category))] = d.Category
	}

	for alias, c := range categoryAliases {
		if _, ok := r.byCategory[c]; !ok {
			return nil, fmt.Errorf("alias %q points to %w %q", alias, ErrUnknownCategory, c)
		}
		r.aliases[foldName(alias)] = c
	}

	return r, nil
}

// MustNew is like New but panics on an invalid table
func MustNew(defs []Definition, categoryAliases map[string]models.Category) *Registry {
	r, err := New(defs, categoryAliases)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return r
}

// Categories returns the closed set in display order
func (r *Registry) Categories() []models.Category {
	out := make([]models.Category, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.Category
	}
	return out
}

// Known reports whether c belongs to the closed set
func (r *Registry) Known(c models.Category) bool {
	_, ok := r.byCategory[c]
	return ok
}

// IndicatorsFor returns the ordered indicator names of a category
func (r *Registry) IndicatorsFor(c models.Category) ([]string, error) {
	d, err := r.definition(c)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(d.Indicators))
	for i, ind := range d.Indicators {
		names[i] = ind.Key
	}
	return names, nil
}

// Indicators returns the full indicator definitions of a category
func (r *Registry) Indicators(c models.Category) ([]Indicator, error) {
	d, err := r.definition(c)
	if err != nil {
		return nil, err
	}
	return cloneDefinition(*d).Indicators, nil
}

// CollectionFor returns the backing collection of a category
func (r *Registry) CollectionFor(c models.Category) (string, error) {
	d, err := r.definition(c)
	if err != nil {
		return "", err
	}
	return d.Collection, nil
}

// ResolveCategory maps a stored or user supplied category name, including
// legacy spellings, to a member of the closed set.
func (r *Registry) ResolveCategory(name string) (models.Category, bool) {
	c, ok := r.aliases[foldName(name)]
	return c, ok
}

// Describe returns the public view of every category
func (r *Registry) Describe() []models.CategoryInfo {
	out := make([]models.CategoryInfo, 0, len(r.defs))
	for _, d := range r.defs {
		info := models.CategoryInfo{
			Name:       d.Category,
			Collection: d.Collection,
			Indicators: make([]models.IndicatorInfo, len(d.Indicators)),
		}
		for i, ind := range d.Indicators {
			info.Indicators[i] = models.IndicatorInfo{Key: ind.Key, Unit: ind.Unit}
		}
		out = append(out, info)
	}
	return out
}

func (r *Registry) definition(c models.Category) (*Definition, error) {
	i, ok := r.byCategory[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return &r.defs[i], nil
}

func cloneDefinition(d Definition) Definition {
	inds := make([]Indicator, len(d.Indicators))
	for i, ind := range d.Indicators {
		inds[i] = Indicator{
			Key:     ind.Key,
			Unit:    ind.Unit,
			Aliases: append([]string(nil), ind.Aliases...),
		}
	}
	d.Indicators = inds
	return d
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
