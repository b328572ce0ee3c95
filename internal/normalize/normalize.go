// Package normalize turns stored documents of any historical shape into
// canonical items. Indicators may live nested under "indicators", flat on the
// document, or under a legacy spelling; the output always carries exactly the
// indicator keys the registry declares for the item's category.
package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/schema"
)

// ErrUnresolvableCategory is returned when neither the document nor the
// caller names a known category
var ErrUnresolvableCategory = errors.New("unresolvable category")

// decimalNumber is the plain decimal notation accepted from text. It rules
// out the hex floats, digit separators and inf/nan words ParseFloat accepts.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Record is an untyped stored document
type Record = map[string]interface{}

const (
	fieldID         = "id"
	fieldName       = "name"
	fieldCategory   = "category"
	fieldType       = "type"
	fieldColor      = "color"
	fieldIndicators = "indicators"
)

// Normalizer reshapes records using a registry
type Normalizer struct {
	registry      *schema.Registry
	fallbackColor string
}

// New creates a Normalizer. An invalid fallbackColor is replaced by
// models.DefaultColor.
func New(registry *schema.Registry, fallbackColor string) *Normalizer {
	if !models.ValidColor(fallbackColor) {
		fallbackColor = models.DefaultColor
	}
	return &Normalizer{registry: registry, fallbackColor: fallbackColor}
}

// FallbackColor returns the color applied to items without a valid one
func (n *Normalizer) FallbackColor() string {
	return n.fallbackColor
}

// Normalize converts a stored record into a canonical item. fallback is used
// when the record carries no category of its own, as happens for documents
// read from a per-category collection.
func (n *Normalizer) Normalize(raw Record, fallback models.Category) (models.Item, error) {
	category, err := n.resolveCategory(raw, fallback)
	if err != nil {
		return models.Item{}, err
	}

	indicators, err := n.registry.Indicators(category)
	if err != nil {
		return models.Item{}, err
	}

	color, _ := raw[fieldColor].(string)
	if !models.ValidColor(color) {
		color = n.fallbackColor
	}

	return models.Item{
		ID:         stringField(raw, fieldID),
		Name:       stringField(raw, fieldName),
		Category:   category,
		Color:      color,
		Indicators: extractIndicators(raw, indicators),
	}, nil
}

// NormalizeItem re-runs normalization over an item already in memory
func (n *Normalizer) NormalizeItem(it models.Item) (models.Item, error) {
	raw := it.Record()
	raw[fieldID] = it.ID
	return n.Normalize(raw, it.Category)
}

// NormalizeDraft reshapes admin form input. Unlike Normalize it never fails:
// a category that is not spelled exactly as in the registry is kept verbatim with no indicators and a provided
// color is kept as typed, so the validator can report both.
func (n *Normalizer) NormalizeDraft(raw Record, category string) models.Item {
	it := models.Item{
		ID:         stringField(raw, fieldID),
		Name:       strings.TrimSpace(stringField(raw, fieldName)),
		Category:   models.Category(category),
		Color:      strings.TrimSpace(stringField(raw, fieldColor)),
		Indicators: map[string]*float64{},
	}
	if it.Color == "" {
		it.Color = n.fallbackColor
	}

	// Form input must name a category exactly; legacy aliases are only
	// honoured when reading stored records.
	if !n.registry.Known(it.Category) {
		return it
	}

	indicators, err := n.registry.Indicators(it.Category)
	if err != nil {
		return it
	}
	it.Indicators = extractIndicators(raw, indicators)
	return it
}

func (n *Normalizer) resolveCategory(raw Record, fallback models.Category) (models.Category, error) {
	if name := stringField(raw, fieldCategory); name != "" {
		if c, ok := n.registry.ResolveCategory(name); ok {
			return c, nil
		}
		return "", ErrUnresolvableCategory
	}
	if legacy := stringField(raw, fieldType); legacy != "" {
		if c, ok := n.registry.ResolveCategory(legacy); ok {
			return c, nil
		}
	}
	if fallback != "" && n.registry.Known(fallback) {
		return fallback, nil
	}
	return "", ErrUnresolvableCategory
}

func extractIndicators(raw Record, indicators []schema.Indicator) map[string]*float64 {
	nested := asMap(raw[fieldIndicators])
	out := make(map[string]*float64, len(indicators))
	for _, ind := range indicators {
		out[ind.Key] = nil
		v, ok := lookup(raw, nested, ind)
		if !ok {
			continue
		}
		if f, ok := toNumber(v); ok {
			out[ind.Key] = &f
		}
	}
	return out
}

// lookup tries the indicator key then each alias, nested before flat.
// Null values count as absent.
func lookup(raw, nested Record, ind schema.Indicator) (interface{}, bool) {
	names := make([]string, 0, 1+len(ind.Aliases))
	names = append(names, ind.Key)
	names = append(names, ind.Aliases...)

	for _, name := range names {
		if v, ok := nested[name]; ok && !isNull(v) {
			return v, true
		}
		if v, ok := raw[name]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	p, ok := v.(*float64)
	return ok && p == nil
}

func asMap(v interface{}) Record {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case map[string]*float64:
		out := make(Record, len(m))
		for k, f := range m {
			out[k] = f
		}
		return out
	case map[string]float64:
		out := make(Record, len(m))
		for k, f := range m {
			out[k] = f
		}
		return out
	}
	return nil
}

// toNumber coerces numeric-looking values. Booleans, empty strings, NaN,
// infinities and non-decimal text are not numbers.
func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case *float64:
		if x == nil {
			return 0, false
		}
		f = *x
	case json.Number:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(strings.TrimSpace(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDecimal(s string) (float64, bool) {
	if !decimalNumber.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringField(raw Record, key string) string {
	s, _ := raw[key].(string)
	return s
}
