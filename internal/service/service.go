// Package service is the action boundary of the dashboard: it loads items
// through the normalizer, checks edits with the validator, and persists them.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/meur/comparador/internal/chart"
	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/normalize"
	"github.com/meur/comparador/internal/schema"
	"github.com/meur/comparador/internal/seed"
	"github.com/meur/comparador/internal/storage"
	"github.com/meur/comparador/internal/validate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound is returned for an unknown item id
	ErrNotFound = errors.New("item not found")
	// ErrStorage wraps any failure of the document store
	ErrStorage = errors.New("storage failure")
)

// Store is the document storage the service depends on
type Store interface {
	ListDocuments(ctx context.Context, collection string) ([]storage.Document, error)
	GetDocument(ctx context.Context, collection, id string) (*storage.Document, error)
	CreateDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	UpdateDocument(ctx context.Context, collection, id string, fields map[string]interface{}) error
	SeedCollection(ctx context.Context, collection string, docs []map[string]interface{}) (int, error)
}

// Options wires the service collaborators. Nil fields get defaults.
type Options struct {
	Registry   *schema.Registry
	Normalizer *normalize.Normalizer
	Validator  *validate.Validator
	Dataset    seed.Dataset
	Logger     *zap.Logger
}

// Service implements the dashboard operations
type Service struct {
	store      Store
	registry   *schema.Registry
	normalizer *normalize.Normalizer
	validator  *validate.Validator
	dataset    seed.Dataset
	logger     *zap.Logger
}

// New creates a Service over store
func New(store Store, opts Options) *Service {
	s := &Service{
		store:      store,
		registry:   opts.Registry,
		normalizer: opts.Normalizer,
		validator:  opts.Validator,
		dataset:    opts.Dataset,
		logger:     opts.Logger,
	}
	if s.registry == nil {
		s.registry = schema.Default()
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(s.registry, models.DefaultColor)
	}
	if s.validator == nil {
		s.validator = validate.New(s.registry, nil)
	}
	if s.dataset == nil {
		s.dataset = seed.Demo()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Registry returns the schema registry in use
func (s *Service) Registry() *schema.Registry {
	return s.registry
}

// ResolveCategory maps a path or form value to a category
func (s *Service) ResolveCategory(name string) (models.Category, error) {
	c, ok := s.registry.ResolveCategory(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", schema.ErrUnknownCategory, name)
	}
	return c, nil
}

// List returns the normalized items of a category sorted by name. Records
// that cannot be normalized are skipped and reported by id.
func (s *Service) List(ctx context.Context, category models.Category) (models.ItemList, error) {
	collection, err := s.registry.CollectionFor(category)
	if err != nil {
		return models.ItemList{}, err
	}

	docs, err := s.store.ListDocuments(ctx, collection)
	if err != nil {
		s.logger.Error("Failed to list documents", zap.String("collection", collection), zap.Error(err))
		return models.ItemList{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	list := models.ItemList{Category: category, Items: make([]models.Item, 0, len(docs))}
	for _, doc := range docs {
		item, err := s.fromDocument(doc, category)
		if err != nil {
			s.logger.Warn("Skipping unreadable record",
				zap.String("collection", collection),
				zap.String("id", doc.ID),
				zap.Error(err))
			list.Skipped = append(list.Skipped, doc.ID)
			continue
		}
		list.Items = append(list.Items, item)
	}

	sort.SliceStable(list.Items, func(i, j int) bool {
		return strings.ToLower(list.Items[i].Name) < strings.ToLower(list.Items[j].Name)
	})
	list.TotalCount = len(list.Items)
	return list, nil
}

// Get returns one normalized item
func (s *Service) Get(ctx context.Context, category models.Category, id string) (models.Item, error) {
	collection, err := s.registry.CollectionFor(category)
	if err != nil {
		return models.Item{}, err
	}

	doc, err := s.store.GetDocument(ctx, collection, id)
	if err != nil {
		s.logger.Error("Failed to get document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return models.Item{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if doc == nil {
		return models.Item{}, ErrNotFound
	}

	item, err := s.fromDocument(*doc, category)
	if err != nil {
		s.logger.Warn("Unreadable record requested", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return models.Item{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return item, nil
}

// Create validates a form draft and stores it. The draft's "category" field
// selects the collection. On failure the reshaped draft is returned with the
// error so the caller can keep the user's edits.
func (s *Service) Create(ctx context.Context, draft normalize.Record) (models.Item, error) {
	category, _ := draft["category"].(string)
	item := s.normalizer.NormalizeDraft(draft, category)
	item.ID = ""

	if errs := s.validator.Validate(item); len(errs) > 0 {
		return item, errs
	}

	collection, err := s.registry.CollectionFor(item.Category)
	if err != nil {
		return item, err
	}

	id, err := s.store.CreateDocument(ctx, collection, item.Record())
	if err != nil {
		s.logger.Error("Failed to create item", zap.String("collection", collection), zap.String("name", item.Name), zap.Error(err))
		return item, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	item.ID = id

	s.logger.Info("Item created",
		zap.String("id", id),
		zap.String("category", string(item.Category)),
		zap.String("name", item.Name))
	return item, nil
}

// Update replaces the name, color and indicators of an existing item. The
// category of an item cannot change.
func (s *Service) Update(ctx context.Context, category models.Category, id string, draft normalize.Record) (models.Item, error) {
	collection, err := s.registry.CollectionFor(category)
	if err != nil {
		return models.Item{}, err
	}

	requested, _ := draft["category"].(string)
	if requested == "" {
		requested = string(category)
	}
	item := s.normalizer.NormalizeDraft(draft, requested)
	item.ID = id

	errs := s.validator.Validate(item)
	if _, bad := errs[validate.FieldCategory]; !bad && item.Category != category {
		errs[validate.FieldCategory] = validate.FieldError{
			Code:    validate.CodeCategoryImmutable,
			Message: "La categoría no se puede cambiar después de crear el elemento.",
		}
	}
	if len(errs) > 0 {
		return item, errs
	}

	err = s.store.UpdateDocument(ctx, collection, id, item.Record())
	if errors.Is(err, storage.ErrNotFound) {
		return item, ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to update item", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		return item, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Info("Item updated", zap.String("id", id), zap.String("category", string(category)))
	return item, nil
}

// Seed inserts the demo rows of a category if its collection is empty. It
// returns the number of inserted rows, zero when already populated.
func (s *Service) Seed(ctx context.Context, category models.Category) (int, error) {
	collection, err := s.registry.CollectionFor(category)
	if err != nil {
		return 0, err
	}

	items := s.dataset.Items(category)
	docs := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		docs = append(docs, it.Record())
	}

	n, err := s.store.SeedCollection(ctx, collection, docs)
	if err != nil {
		s.logger.Error("Failed to seed collection", zap.String("collection", collection), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if n == 0 {
		s.logger.Info("Collection already contains data, skipping seed", zap.String("collection", collection))
	} else {
		s.logger.Info("Collection seeded", zap.String("collection", collection), zap.Int("rows", n))
	}
	return n, nil
}

// SeedReport counts inserted demo rows per category
type SeedReport struct {
	Inserted map[models.Category]int `json:"inserted"`
	Total    int                     `json:"total"`
}

// SeedAll seeds every category in registry order. Each category is its own
// batch; a failure stops the run and the report covers what was done.
func (s *Service) SeedAll(ctx context.Context) (SeedReport, error) {
	report := SeedReport{Inserted: make(map[models.Category]int)}
	for _, c := range s.registry.Categories() {
		n, err := s.Seed(ctx, c)
		if err != nil {
			return report, err
		}
		report.Inserted[c] = n
		report.Total += n
	}
	return report, nil
}

// Stats holds item counts for the admin summary. Counts match what List
// shows; stored records List cannot read are counted in Unreadable.
type Stats struct {
	Total      int                     `json:"total"`
	ByCategory map[models.Category]int `json:"by_category"`
	Unreadable map[models.Category]int `json:"unreadable,omitempty"`
}

// Stats counts the listable items of every category
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	categories := s.registry.Categories()
	stats := Stats{ByCategory: make(map[models.Category]int, len(categories))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range categories {
		c := c
		g.Go(func() error {
			list, err := s.List(gctx, c)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			stats.ByCategory[c] = list.TotalCount
			stats.Total += list.TotalCount
			if len(list.Skipped) > 0 {
				if stats.Unreadable == nil {
					stats.Unreadable = make(map[models.Category]int)
				}
				stats.Unreadable[c] = len(list.Skipped)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Charts returns per-indicator comparison data for a category
func (s *Service) Charts(ctx context.Context, category models.Category) ([]chart.Chart, error) {
	indicators, err := s.registry.Indicators(category)
	if err != nil {
		return nil, err
	}
	list, err := s.List(ctx, category)
	if err != nil {
		return nil, err
	}
	return chart.Build(indicators, list.Items), nil
}

func (s *Service) fromDocument(doc storage.Document, category models.Category) (models.Item, error) {
	if doc.DecodeErr != nil {
		return models.Item{}, doc.DecodeErr
	}
	raw := make(normalize.Record, len(doc.Data)+1)
	for k, v := range doc.Data {
		raw[k] = v
	}
	raw["id"] = doc.ID

	item, err := s.normalizer.Normalize(raw, category)
	if err != nil {
		return models.Item{}, err
	}
	if item.Category != category {
		return models.Item{}, fmt.Errorf("record %s belongs to %s, not %s", doc.ID, item.Category, category)
	}
	return item, nil
}
