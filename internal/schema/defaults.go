package schema

import "github.com/meur/comparador/internal/models"

// DefaultDefinitions is the built-in category table
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Category:   models.CategoryBanks,
			Collection: "bancos",
			Indicators: []Indicator{
				{Key: "solvencia", Unit: UnitPercent, Aliases: []string{"Solvencia", "indice_solvencia"}},
				{Key: "liquidez", Unit: UnitPercent, Aliases: []string{"Liquidez", "indice_liquidez"}},
				{Key: "morosidad", Unit: UnitPercent, Aliases: []string{"Morosidad", "tasa_morosidad"}},
			},
		},
		{
			Category:   models.CategoryUniversities,
			Collection: "universidades",
			Indicators: []Indicator{
				{Key: "nivel academico", Unit: UnitPercent, Aliases: []string{
					"nivel_academico", "nivelAcademico", "Nivel Academico", "nivel académico", "Nivel Académico",
				}},
				{Key: "investigacion", Unit: UnitPercent, Aliases: []string{"Investigacion", "investigación", "Investigación"}},
				{Key: "empleabilidad", Unit: UnitPercent, Aliases: []string{"Empleabilidad"}},
			},
		},
		{
			Category:   models.CategoryHospitals,
			Collection: "hospitales",
			Indicators: []Indicator{
				{Key: "calidad de atencion", Unit: UnitPercent, Aliases: []string{
					"calidad_de_atencion", "calidadDeAtencion", "Calidad de Atencion", "calidad de atención", "Calidad de Atención",
				}},
				{Key: "tiempo de espera", Unit: UnitMinutes, Aliases: []string{
					"tiempo_de_espera", "tiempoDeEspera", "Tiempo de Espera", "Tiempo de espera",
				}},
				{Key: "tasa de recuperacion", Unit: UnitPercent, Aliases: []string{
					"tasa_de_recuperacion", "tasaDeRecuperacion", "Tasa de Recuperacion", "tasa de recuperación", "Tasa de Recuperación",
				}},
			},
		},
	}
}

// DefaultCategoryAliases maps legacy category and type tags to categories
func DefaultCategoryAliases() map[string]models.Category {
	return map[string]models.Category{
		"banco":        models.CategoryBanks,
		"cooperativa":  models.CategoryBanks,
		"banks":        models.CategoryBanks,
		"universidad":  models.CategoryUniversities,
		"universities": models.CategoryUniversities,
		"hospital":     models.CategoryHospitals,
		"hospitals":    models.CategoryHospitals,
	}
}

var defaultRegistry = MustNew(DefaultDefinitions(), DefaultCategoryAliases())

// Default returns the process-wide registry
func Default() *Registry {
	return defaultRegistry
}
