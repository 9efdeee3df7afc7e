package constants

import "strings"

// Concept is a canonical employer contribution (aportación empresa) concept.
type Concept string

const (
	FormacionProfesional  Concept = "FORMACIÓN PROFESIONAL"
	FondoGarantiaSalarial Concept = "FONDO GARANTÍA SALARIAL"
	Desempleo             Concept = "DESEMPLEO"
	ATyEP                 Concept = "AT Y EP"
	ContingenciasComunes  Concept = "CONTINGENCIAS COMUNES"
)

// Output order of the employer contribution items.
var allConcepts = []Concept{
	FormacionProfesional,
	FondoGarantiaSalarial,
	Desempleo,
	ATyEP,
	ContingenciasComunes,
}

// Concepts returns the canonical concepts in output order.
func Concepts() []Concept {
	out := make([]Concept, len(allConcepts))
	copy(out, allConcepts)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allConcepts))
	for i, c := range allConcepts {
		result[i] = string(c)
	}
	return result
}

// Canonicalize maps a free-form concept label (as printed, or as returned by a
// verification model) to its canonical name.
func Canonicalize(input string) (Concept, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToUpper(strings.TrimSpace(input))
	normalized = strings.NewReplacer("Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N",
		"á", "A", "é", "E", "í", "I", "ó", "O", "ú", "U", "ü", "U", "ñ", "N").Replace(normalized)

	synonyms := map[string]Concept{
		"FORMACION PROFESIONAL":   FormacionProfesional,
		"FORMACION PROF.":         FormacionProfesional,
		"FONDO GARANTIA SALARIAL": FondoGarantiaSalarial,
		"FOGASA":                  FondoGarantiaSalarial,
		"DESEMPLEO":               Desempleo,
		"AT Y EP":                 ATyEP,
		"AT/EP":                   ATyEP,
		"AT-EP":                   ATyEP,
		"CONTINGENCIAS COMUNES":   ContingenciasComunes,
		"CONT. COMUNES":           ContingenciasComunes,
	}
	if c, ok := synonyms[normalized]; ok {
		return c, true
	}
	return "", false
}
