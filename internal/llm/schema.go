package llm

// BuildPayslipJSONSchema returns a JSON-Schema (draft 2020-12 subset) of the
// payslip result as a generic map. It is embedded in the prompt and used
// locally to validate model answers.
func BuildPayslipJSONSchema() map[string]any {
	item := func(extra map[string]any, required ...string) map[string]any {
		props := map[string]any{
			"concepto": map[string]any{"type": "string", "minLength": 1},
			"importe":  amountProp(),
		}
		for k, v := range extra {
			props[k] = v
		}
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           props,
			"required":             append([]string{"concepto", "importe"}, required...),
		}
	}

	props := map[string]any{
		"empresa": object(map[string]any{
			"razon_social": nullableString(),
			"cif":          nullableString(),
		}),
		"trabajador": object(map[string]any{
			"nombre": nullableString(),
			"dni":    nullableString(),
		}),
		"periodo": object(map[string]any{
			"desde": nullableDate(),
			"hasta": nullableDate(),
			"dias":  map[string]any{"type": "integer", "minimum": 0, "maximum": 31},
		}),
		"devengo_items":   map[string]any{"type": "array", "items": item(nil)},
		"deduccion_items": map[string]any{"type": "array", "items": item(nil)},
		"aportacion_empresa_items": map[string]any{
			"type": "array",
			"items": item(map[string]any{
				"base": amountProp(),
				"tipo": amountProp(),
			}, "base", "tipo"),
		},
		"totales": object(map[string]any{
			"devengo_total":            amountProp(),
			"deduccion_total":          amountProp(),
			"aportacion_empresa_total": amountProp(),
			"liquido_a_percibir":       amountProp(),
		}),
		"warnings": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"empresa", "trabajador", "periodo", "devengo_items", "deduccion_items", "aportacion_empresa_items"},
	}
}

func object(props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func amountProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func nullableDate() map[string]any {
	return map[string]any{
		"type":    []string{"string", "null"},
		"pattern": `^\d{4}-\d{2}-\d{2}$`,
	}
}
