package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/normalize"
	"github.com/meur/comparador/internal/schema"
	"github.com/meur/comparador/internal/storage"
	"github.com/meur/comparador/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyExport = `[
	{"name": "Banco Andino", "type": "banco", "Solvencia": 14.5, "liquidez": "32", "morosidad": 0},
	{"name": "Hospital Central", "type": "hospital", "tiempo_de_espera": 45, "color": "#0f0"},
	{"name": "Universidad del Sur", "category": "Universidades", "indicators": {"nivel academico": 88}},
	{"name": "Sin Tipo", "solvencia": 10},
	{"name": "Aseguradora", "category": "Seguros"},
	{"type": "banco", "solvencia": 1},
	null,
	{"id": "u-9", "name": "Ab", "type": "universidad", "nivel_academico": 70, "investigacion": 60, "empleabilidad": 80}
]`

func newTestImporter(skipInvalid bool) importer {
	registry := schema.Default()
	return importer{
		registry:    registry,
		normalizer:  normalize.New(registry, models.DefaultColor),
		validator:   validate.New(registry, nil),
		skipInvalid: skipInvalid,
	}
}

func decodeTestExport(t *testing.T, export string) []normalize.Record {
	t.Helper()
	rows, err := decodeExport(strings.NewReader(export))
	require.NoError(t, err)
	return rows
}

func indexes(skips []Skip) []int {
	out := make([]int, 0, len(skips))
	for _, s := range skips {
		out = append(out, s.Index)
	}
	return out
}

func TestGroup(t *testing.T) {
	rows := decodeTestExport(t, legacyExport)
	require.Len(t, rows, 8)

	plan, err := newTestImporter(false).group(rows)
	require.NoError(t, err)

	require.Len(t, plan.Batches, 3)
	assert.Equal(t, models.CategoryBanks, plan.Batches[0].Category)
	assert.Equal(t, "bancos", plan.Batches[0].Collection)
	assert.Equal(t, models.CategoryUniversities, plan.Batches[1].Category)
	assert.Equal(t, models.CategoryHospitals, plan.Batches[2].Category)
	assert.Equal(t, 4, plan.Rows())

	bank := plan.Batches[0].Docs[0].Data
	assert.Equal(t, "Banco Andino", bank["name"])
	assert.Equal(t, "Bancos", bank["category"])
	assert.Equal(t, models.DefaultColor, bank["color"])
	assert.Equal(t, map[string]interface{}{
		"solvencia": 14.5,
		"liquidez":  32.0,
		"morosidad": 0.0,
	}, bank["indicators"])

	assert.Equal(t, "#0f0", plan.Batches[2].Docs[0].Data["color"])
	assert.Equal(t, "legacy-u-9", plan.Batches[1].Docs[1].ID)

	assert.Equal(t, []int{3, 4, 5, 6}, indexes(plan.Skipped))
	assert.Equal(t, "Sin Tipo", plan.Skipped[0].Name)
	assert.Equal(t, "Aseguradora", plan.Skipped[1].Name)
	assert.Equal(t, "missing name", plan.Skipped[2].Reason)
	assert.Equal(t, "null record", plan.Skipped[3].Reason)

	assert.Equal(t, []int{1, 2, 7}, indexes(plan.Invalid))
	assert.Contains(t, plan.Invalid[0].Reason, "tasa de recuperacion")
	assert.Contains(t, plan.Invalid[2].Reason, "name")
}

func TestGroup_SkipInvalid(t *testing.T) {
	plan, err := newTestImporter(true).group(decodeTestExport(t, legacyExport))
	require.NoError(t, err)

	require.Len(t, plan.Batches, 1)
	assert.Equal(t, models.CategoryBanks, plan.Batches[0].Category)
	assert.Empty(t, plan.Invalid)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, indexes(plan.Skipped))
}

func TestGroup_Fallback(t *testing.T) {
	im := newTestImporter(false)
	im.fallback = models.CategoryBanks

	plan, err := im.group([]normalize.Record{{"name": "Sin Tipo", "solvencia": 10}})
	require.NoError(t, err)
	assert.Empty(t, plan.Skipped)
	require.Len(t, plan.Batches, 1)
	assert.Equal(t, "bancos", plan.Batches[0].Collection)
}

func TestLegacyID_Stable(t *testing.T) {
	a, err := legacyID(normalize.Record{"name": "Banco", "solvencia": 1.0})
	require.NoError(t, err)
	b, err := legacyID(normalize.Record{"solvencia": 1.0, "name": "Banco"})
	require.NoError(t, err)
	c, err := legacyID(normalize.Record{"name": "Banco", "solvencia": 2.0})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	own, err := legacyID(normalize.Record{"id": " abc "})
	require.NoError(t, err)
	assert.Equal(t, "legacy-abc", own)
}

func TestApply_Twice(t *testing.T) {
	ctx := context.Background()
	store, err := storage.New(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	defer store.Close()

	im := newTestImporter(false)
	plan, err := im.group(decodeTestExport(t, legacyExport))
	require.NoError(t, err)

	first, err := apply(ctx, store, plan)
	require.NoError(t, err)
	assert.Equal(t, map[models.Category]int{
		models.CategoryBanks:        1,
		models.CategoryUniversities: 2,
		models.CategoryHospitals:    1,
	}, first)

	second, err := apply(ctx, store, plan)
	require.NoError(t, err)
	for c, n := range second {
		assert.Zero(t, n, "category %s", c)
	}

	grown, err := im.group(decodeTestExport(t, `[
		{"name": "Banco Andino", "type": "banco", "Solvencia": 14.5, "liquidez": "32", "morosidad": 0},
		{"name": "Banco Nuevo", "type": "banco", "solvencia": 1, "liquidez": 2, "morosidad": 3}
	]`))
	require.NoError(t, err)
	third, err := apply(ctx, store, grown)
	require.NoError(t, err)
	assert.Equal(t, 1, third[models.CategoryBanks])

	for collection, want := range map[string]int{"bancos": 2, "universidades": 2, "hospitales": 1} {
		n, err := store.CountDocuments(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, want, n, collection)
	}
}

func TestDecodeExport_Invalid(t *testing.T) {
	_, err := decodeExport(strings.NewReader(`{"name": "not an array"}`))
	assert.Error(t, err)
}
