package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateDocument(ctx, "bancos", map[string]interface{}{
		"name":       "Banco Pichincha",
		"indicators": map[string]interface{}{"solvencia": 12.1},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := store.GetDocument(ctx, "bancos", id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "Banco Pichincha", doc.Data["name"])
	assert.Equal(t, 12.1, doc.Data["indicators"].(map[string]interface{})["solvencia"])
}

func TestGetDocument_Missing(t *testing.T) {
	store := newTestStore(t)

	doc, err := store.GetDocument(context.Background(), "bancos", "nope")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestGetDocument_WrongCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateDocument(ctx, "bancos", map[string]interface{}{"name": "x"})
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "hospitales", id)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUpdateDocument_Merges(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateDocument(ctx, "bancos", map[string]interface{}{
		"name":           "Old",
		"activosTotales": 1.5e9,
	})
	require.NoError(t, err)

	err = store.UpdateDocument(ctx, "bancos", id, map[string]interface{}{"name": "New"})
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "bancos", id)
	require.NoError(t, err)
	assert.Equal(t, "New", doc.Data["name"])
	assert.Equal(t, 1.5e9, doc.Data["activosTotales"])
}

func TestUpdateDocument_Missing(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateDocument(context.Background(), "bancos", "nope", map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDocuments_Order(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.CreateDocument(ctx, "bancos", map[string]interface{}{"name": name})
		require.NoError(t, err)
	}

	listed, err := store.ListDocuments(ctx, "bancos")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, listed[i].Data["name"])
	}

	other, err := store.ListDocuments(ctx, "hospitales")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func insertRaw(t *testing.T, store *Store, collection, id, body string) {
	t.Helper()
	_, err := store.db.Exec(`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`, collection, id, body)
	require.NoError(t, err)
}

func TestListDocuments_FlagsUndecodableRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.CreateDocument(ctx, "bancos", map[string]interface{}{"name": "a"})
	require.NoError(t, err)
	insertRaw(t, store, "bancos", "bad", "[1,2]")

	listed, err := store.ListDocuments(ctx, "bancos")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.NoError(t, listed[0].DecodeErr)
	assert.Equal(t, "bad", listed[1].ID)
	assert.Nil(t, listed[1].Data)
	assert.Error(t, listed[1].DecodeErr)

	doc, err := store.GetDocument(ctx, "bancos", "bad")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Error(t, doc.DecodeErr)
}

func TestUpdateDocument_ReplacesUndecodableBody(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	insertRaw(t, store, "bancos", "bad", "not json")

	require.NoError(t, store.UpdateDocument(ctx, "bancos", "bad", map[string]interface{}{"name": "Banco Reparado"}))

	doc, err := store.GetDocument(ctx, "bancos", "bad")
	require.NoError(t, err)
	require.NoError(t, doc.DecodeErr)
	assert.Equal(t, "Banco Reparado", doc.Data["name"])
}

func TestImportDocuments_SkipsExistingIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	batches := map[string][]KeyedDocument{
		"bancos": {
			{ID: "legacy-1", Data: map[string]interface{}{"name": "Banco Uno"}},
			{ID: "legacy-2", Data: map[string]interface{}{"name": "Banco Dos"}},
		},
		"hospitales": {
			{ID: "legacy-3", Data: map[string]interface{}{"name": "Hospital Tres"}},
		},
	}

	inserted, err := store.ImportDocuments(ctx, batches)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bancos": 2, "hospitales": 1}, inserted)

	again, err := store.ImportDocuments(ctx, batches)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"bancos": 0, "hospitales": 0}, again)

	n, err := store.CountDocuments(ctx, "bancos")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	doc, err := store.GetDocument(ctx, "bancos", "legacy-2")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Banco Dos", doc.Data["name"])
}

func TestImportDocuments_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.ImportDocuments(ctx, map[string][]KeyedDocument{
		"bancos": {
			{ID: "legacy-1", Data: map[string]interface{}{"name": "Banco Uno"}},
			{ID: "", Data: map[string]interface{}{"name": "Sin Id"}},
		},
	})
	require.Error(t, err)

	n, err := store.CountDocuments(ctx, "bancos")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedCollection_OnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docs := []map[string]interface{}{{"name": "a"}, {"name": "b"}}

	n, err := store.SeedCollection(ctx, "bancos", docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.SeedCollection(ctx, "bancos", docs)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.CountDocuments(ctx, "bancos")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSeedCollection_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	docs := []map[string]interface{}{
		{"name": "ok"},
		{"name": make(chan int)}, // cannot be encoded
	}

	_, err := store.SeedCollection(ctx, "bancos", docs)
	require.Error(t, err)

	count, err := store.CountDocuments(ctx, "bancos")
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must not leave partial rows")
}

func TestSeedCollection_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newTestStore(t)

	_, err := store.SeedCollection(ctx, "bancos", []map[string]interface{}{{"name": "a"}})
	assert.Error(t, err)
}
