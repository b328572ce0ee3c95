package validate

import (
	"testing"

	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBank() models.Item {
	return models.Item{
		Name:     "Abc",
		Category: "Bancos",
		Color:    "#2563eb",
		Indicators: map[string]*float64{
			"solvencia": models.Value(10),
			"liquidez":  models.Value(20),
			"morosidad": models.Value(1),
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	v := New(schema.Default(), nil)
	assert.Empty(t, v.Validate(validBank()))
}

func TestValidate_SingleFieldCorruptions(t *testing.T) {
	v := New(schema.Default(), nil)

	tests := []struct {
		name   string
		mutate func(*models.Item)
		field  string
		code   Code
	}{
		{"short name", func(it *models.Item) { it.Name = "Ab" }, FieldName, CodeTooShort},
		{"whitespace padded name", func(it *models.Item) { it.Name = "  Ab  " }, FieldName, CodeTooShort},
		{"bad color", func(it *models.Item) { it.Color = "blue" }, FieldColor, CodeInvalidColorFormat},
		{"color without hash", func(it *models.Item) { it.Color = "2563eb" }, FieldColor, CodeInvalidColorFormat},
		{"missing indicator", func(it *models.Item) { it.Indicators["solvencia"] = nil }, IndicatorField("solvencia"), CodeNotANumber},
		{"absent indicator key", func(it *models.Item) { delete(it.Indicators, "morosidad") }, IndicatorField("morosidad"), CodeNotANumber},
		{"unknown category", func(it *models.Item) { it.Category = "Foo" }, FieldCategory, CodeInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := validBank()
			tt.mutate(&it)
			errs := v.Validate(it)
			assert.True(t, errs.Has(tt.field, tt.code), "want %s=%s, got %v", tt.field, tt.code, errs)
		})
	}
}

func TestValidate_NotShortCircuiting(t *testing.T) {
	v := New(schema.Default(), nil)
	it := validBank()
	it.Name = "A"
	it.Color = "red"
	it.Indicators = map[string]*float64{}

	errs := v.Validate(it)
	assert.Len(t, errs, 5)
	assert.True(t, errs.Has(FieldName, CodeTooShort))
	assert.True(t, errs.Has(FieldColor, CodeInvalidColorFormat))
	assert.Contains(t, errs.Error(), "indicators.liquidez: NotANumber")
}

func TestValidate_EmptyColorAllowed(t *testing.T) {
	v := New(schema.Default(), nil)
	it := validBank()
	it.Color = ""
	assert.Empty(t, v.Validate(it))
}

func TestValidate_MultibyteName(t *testing.T) {
	v := New(schema.Default(), nil)
	it := validBank()
	it.Name = "Ñañ"
	assert.Empty(t, v.Validate(it))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	v := New(schema.Default(), nil)
	it := validBank()
	it.Indicators["liquidez"] = nil
	before := len(it.Indicators)

	v.Validate(it)
	assert.Len(t, it.Indicators, before)
	assert.Nil(t, it.Indicators["liquidez"])
	assert.Equal(t, "Abc", it.Name)
}

func TestValidate_ZeroIsANumber(t *testing.T) {
	v := New(schema.Default(), nil)
	it := validBank()
	it.Indicators["morosidad"] = models.Value(0)
	assert.Empty(t, v.Validate(it))
}

func TestValidate_NoRangesByDefault(t *testing.T) {
	v := New(schema.Default(), nil)
	it := validBank()
	it.Indicators["solvencia"] = models.Value(-500)
	it.Indicators["liquidez"] = models.Value(1e6)
	assert.Empty(t, v.Validate(it))
}

func TestValidate_Ranges(t *testing.T) {
	zero := 0.0
	ranges := Strict(schema.Default())
	ranges["morosidad"] = Range{Min: &zero, ExclusiveMin: true}
	v := New(schema.Default(), ranges)

	tests := []struct {
		key   string
		value float64
		ok    bool
	}{
		{"solvencia", 0, true},
		{"solvencia", 100, true},
		{"solvencia", 100.5, false},
		{"liquidez", -0.1, false},
		{"morosidad", 0, false},
		{"morosidad", 0.01, true},
	}
	for _, tt := range tests {
		it := validBank()
		it.Indicators[tt.key] = models.Value(tt.value)
		errs := v.Validate(it)
		if tt.ok {
			assert.Empty(t, errs, "%s=%g", tt.key, tt.value)
		} else {
			assert.True(t, errs.Has(IndicatorField(tt.key), CodeOutOfRange), "%s=%g", tt.key, tt.value)
		}
	}
}

func TestStrict_SkipsMinutes(t *testing.T) {
	ranges := Strict(schema.Default())
	_, ok := ranges["tiempo de espera"]
	assert.False(t, ok)
	require.Contains(t, ranges, "empleabilidad")
	assert.Equal(t, "[0, 100]", ranges["empleabilidad"].String())
}

func TestRange_String(t *testing.T) {
	zero := 0.0
	assert.Equal(t, "(0, ∞)", Range{Min: &zero, ExclusiveMin: true}.String())
	assert.Equal(t, "(-∞, ∞)", Range{}.String())
}
