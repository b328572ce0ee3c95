package models

// Category selects which indicator set and backing collection apply to an item
type Category string

const (
	CategoryBanks        Category = "Bancos"
	CategoryUniversities Category = "Universidades"
	CategoryHospitals    Category = "Hospitales"
)

// CategoryInfo describes a category for listings
type CategoryInfo struct {
	Name       Category        `json:"name"`
	Collection string          `json:"collection"`
	Indicators []IndicatorInfo `json:"indicators"`
}

// IndicatorInfo is the public view of an indicator definition
type IndicatorInfo struct {
	Key  string `json:"key"`
	Unit string `json:"unit"`
}
