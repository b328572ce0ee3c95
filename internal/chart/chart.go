// Package chart shapes normalized items into per-indicator comparison series
// for the frontend charting library.
package chart

import (
	"github.com/meur/comparador/internal/models"
	"github.com/meur/comparador/internal/schema"
)

// Point is one bar of a comparison chart
type Point struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
	Color string   `json:"color"`
}

// Chart compares every item on a single indicator
type Chart struct {
	Indicator string  `json:"indicator"`
	Label     string  `json:"label"`
	Unit      string  `json:"unit"`
	Points    []Point `json:"points"`
}

// Build returns one chart per indicator in declaration order
func Build(indicators []schema.Indicator, items []models.Item) []Chart {
	charts := make([]Chart, 0, len(indicators))
	for _, ind := range indicators {
		c := Chart{
			Indicator: ind.Key,
			Label:     "Comparativa de " + ind.Key,
			Unit:      ind.Unit,
			Points:    make([]Point, 0, len(items)),
		}
		for _, it := range items {
			c.Points = append(c.Points, Point{
				ID:    it.ID,
				Name:  it.Name,
				Value: it.Indicators[ind.Key],
				Color: it.Color,
			})
		}
		charts = append(charts, c)
	}
	return charts
}
