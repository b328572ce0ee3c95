// Package validate checks canonical items before they are persisted.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/schema"
)

// Code identifies a validation failure
type Code string

const (
	CodeTooShort           Code = "TooShort"
	CodeInvalidCategory    Code = "InvalidCategory"
	CodeInvalidColorFormat Code = "InvalidColorFormat"
	CodeNotANumber         Code = "NotANumber"
	CodeOutOfRange         Code = "OutOfRange"
	CodeCategoryImmutable  Code = "CategoryImmutable"
)

// MinNameLength is the shortest accepted item name
const MinNameLength = 3

const (
	FieldName     = "name"
	FieldCategory = "category"
	FieldColor    = "color"
)

// IndicatorField returns the error key of an indicator
func IndicatorField(key string) string {
	return "indicators." + key
}

// FieldError is a single field-level problem
type FieldError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Errors maps field names to their problem. Empty means valid.
type Errors map[string]FieldError

// Error implements error so Errors can travel through error returns
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + string(e[f].Code)
	}
	return "invalid item: " + strings.Join(parts, ", ")
}

// Has reports whether field failed with code
func (e Errors) Has(field string, code Code) bool {
	fe, ok := e[field]
	return ok && fe.Code == code
}

// Range bounds an indicator value. Nil bounds are open.
type Range struct {
	Min          *float64
	Max          *float64
	ExclusiveMin bool // value must be strictly greater than Min
}

func (r Range) contains(v float64) bool {
	if r.Min != nil {
		if r.ExclusiveMin && v <= *r.Min {
			return false
		}
		if !r.ExclusiveMin && v < *r.Min {
			return false
		}
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) String() string {
	lo, hi := "-∞", "∞"
	open := "["
	if r.Min != nil {
		lo = fmt.Sprintf("%g", *r.Min)
		if r.ExclusiveMin {
			open = "("
		}
	} else {
		open = "("
	}
	if r.Max != nil {
		hi = fmt.Sprintf("%g", *r.Max)
		return open + lo + ", " + hi + "]"
	}
	return open + lo + ", " + hi + ")"
}

// Validator applies field rules and optional per-indicator ranges
type Validator struct {
	registry *schema.Registry
	ranges   map[string]Range
}

// New creates a Validator. ranges is keyed by indicator key and may be nil.
func New(registry *schema.Registry, ranges map[string]Range) *Validator {
	r := make(map[string]Range, len(ranges))
	for k, v := range ranges {
		r[k] = v
	}
	return &Validator{registry: registry, ranges: r}
}

// Strict returns ranges limiting every percentage indicator to [0, 100]
func Strict(registry *schema.Registry) map[string]Range {
	zero, hundred := 0.0, 100.0
	out := make(map[string]Range)
	for _, c := range registry.Categories() {
		inds, _ := registry.Indicators(c)
		for _, ind := range inds {
			if ind.Unit == schema.UnitPercent {
				out[ind.Key] = Range{Min: &zero, Max: &hundred}
			}
		}
	}
	return out
}

// Validate runs every rule and collects all failures. It does not modify it.
func (v *Validator) Validate(it models.Item) Errors {
	errs := Errors{}

	if utf8.RuneCountInString(strings.TrimSpace(it.Name)) < MinNameLength {
		errs[FieldName] = FieldError{
			Code:    CodeTooShort,
			Message: fmt.Sprintf("El nombre debe tener al menos %d caracteres.", MinNameLength),
		}
	}

	if !v.registry.Known(it.Category) {
		errs[FieldCategory] = FieldError{Code: CodeInvalidCategory, Message: "Categoría inválida."}
	}

	if it.Color != "" && !models.ValidColor(it.Color) {
		errs[FieldColor] = FieldError{
			Code:    CodeInvalidColorFormat,
			Message: "Formato de color inválido. Use #RRGGBB.",
		}
	}

	keys, err := v.registry.IndicatorsFor(it.Category)
	if err != nil {
		return errs
	}
	for _, key := range keys {
		value := it.Indicators[key]
		if value == nil {
			errs[IndicatorField(key)] = FieldError{Code: CodeNotANumber, Message: "Debe ser un número válido."}
			continue
		}
		if r, ok := v.ranges[key]; ok && !r.contains(*value) {
			errs[IndicatorField(key)] = FieldError{
				Code:    CodeOutOfRange,
				Message: fmt.Sprintf("El valor debe estar en el rango %s.", r),
			}
		}
	}

	return errs
}
