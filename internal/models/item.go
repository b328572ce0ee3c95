package models

// Item is the canonical institution record shared by validation and rendering.
// Indicators holds exactly the keys declared for Category; a nil value means
// the indicator is missing, which is different from zero.
type Item struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Category   Category            `json:"category"`
	Color      string              `json:"color"`
	Indicators map[string]*float64 `json:"indicators"`
}

// ItemList is a normalized listing for one category
type ItemList struct {
	Category   Category `json:"category"`
	Items      []Item   `json:"items"`
	TotalCount int      `json:"total_count"`
	Skipped    []string `json:"skipped,omitempty"` // IDs of records that could not be normalized
}

// Complete reports whether every indicator has a value
func (it Item) Complete() bool {
	for _, v := range it.Indicators {
		if v == nil {
			return false
		}
	}
	return true
}

// Record converts the item to the stored document shape. The id is not part
// of the document body and undefined indicators are omitted.
func (it Item) Record() map[string]interface{} {
	indicators := make(map[string]interface{}, len(it.Indicators))
	for k, v := range it.Indicators {
		if v != nil {
			indicators[k] = *v
		}
	}
	return map[string]interface{}{
		"name":       it.Name,
		"category":   string(it.Category),
		"color":      it.Color,
		"indicators": indicators,
	}
}

// Value returns a pointer to v, for building indicator maps
func Value(v float64) *float64 {
	return &v
}
