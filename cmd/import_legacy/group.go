package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/normalize"
	"github.com/meur/comparador/internal/schema"
	"github.com/meur/comparador/internal/storage"
	"github.com/meur/comparador/internal/validate"
)

// Skip records a legacy row that was left out of, or flagged in, an import
type Skip struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// Batch holds the normalized documents bound for one collection
type Batch struct {
	Category   models.Category
	Collection string
	Docs       []storage.KeyedDocument
}

// Plan is the outcome of grouping an export. Invalid rows are imported
// and listed in Invalid unless the importer skips them.
type Plan struct {
	Batches []Batch
	Skipped []Skip
	Invalid []Skip
}

// Rows counts the documents the plan would write
func (p Plan) Rows() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.Docs)
	}
	return n
}

type importer struct {
	registry    *schema.Registry
	normalizer  *normalize.Normalizer
	validator   *validate.Validator
	fallback    models.Category
	skipInvalid bool
}

// decodeExport reads a JSON array of legacy institution records.
// Numbers are kept as json.Number so the normalizer sees the exact text.
func decodeExport(r io.Reader) ([]normalize.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []normalize.Record
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	return rows, nil
}

// group normalizes every row and groups the results by category, in
// registry order. Rows whose category cannot be resolved, or which lack a
// name, are skipped. Rows failing validation are flagged.
func (im importer) group(rows []normalize.Record) (Plan, error) {
	var plan Plan
	byCategory := make(map[models.Category][]storage.KeyedDocument)

	for i, raw := range rows {
		if raw == nil {
			plan.Skipped = append(plan.Skipped, Skip{Index: i, Reason: "null record"})
			continue
		}
		item, err := im.normalizer.Normalize(raw, im.fallback)
		if err != nil {
			plan.Skipped = append(plan.Skipped, Skip{Index: i, Name: nameOf(raw), Reason: err.Error()})
			continue
		}
		if strings.TrimSpace(item.Name) == "" {
			plan.Skipped = append(plan.Skipped, Skip{Index: i, Reason: "missing name"})
			continue
		}

		if errs := im.validator.Validate(item); len(errs) > 0 {
			flag := Skip{Index: i, Name: item.Name, Reason: errs.Error()}
			if im.skipInvalid {
				plan.Skipped = append(plan.Skipped, flag)
				continue
			}
			plan.Invalid = append(plan.Invalid, flag)
		}

		id, err := legacyID(raw)
		if err != nil {
			plan.Skipped = append(plan.Skipped, Skip{Index: i, Name: item.Name, Reason: err.Error()})
			continue
		}
		byCategory[item.Category] = append(byCategory[item.Category], storage.KeyedDocument{
			ID:   id,
			Data: item.Record(),
		})
	}

	for _, c := range im.registry.Categories() {
		docs := byCategory[c]
		if len(docs) == 0 {
			continue
		}
		collection, err := im.registry.CollectionFor(c)
		if err != nil {
			return Plan{}, err
		}
		plan.Batches = append(plan.Batches, Batch{Category: c, Collection: collection, Docs: docs})
	}
	return plan, nil
}

// apply writes the plan in one transaction. Rows imported by an earlier run
// keep their ids and are not written again.
func apply(ctx context.Context, store *storage.Store, plan Plan) (map[models.Category]int, error) {
	byCollection := make(map[string][]storage.KeyedDocument, len(plan.Batches))
	for _, b := range plan.Batches {
		byCollection[b.Collection] = b.Docs
	}

	inserted, err := store.ImportDocuments(ctx, byCollection)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Category]int, len(plan.Batches))
	for _, b := range plan.Batches {
		out[b.Category] = inserted[b.Collection]
	}
	return out, nil
}

// legacyID derives a stable document id for a legacy row: its own id when
// the export carries one, otherwise a digest of the row's content.
// Identical rows without an id collapse into one document.
func legacyID(raw normalize.Record) (string, error) {
	if id, _ := raw["id"].(string); strings.TrimSpace(id) != "" {
		return "legacy-" + strings.TrimSpace(id), nil
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("hash record: %w", err)
	}
	sum := sha256.Sum256(body)
	return "legacy-" + hex.EncodeToString(sum[:12]), nil
}

func nameOf(raw normalize.Record) string {
	s, _ := raw["name"].(string)
	return s
}
