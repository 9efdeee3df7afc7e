package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/nominas/constants"
	"github.com/joseph-ayodele/nominas/internal/nomina"
)

var (
	reFence     = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*(.*?)\\s*```\\s*$")
	reSlashDate = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})$`)

	headerKeys = map[string][]string{
		"empresa":    {"razon_social", "cif"},
		"trabajador": {"nombre", "dni"},
		"periodo":    {"desde", "hasta", "dias"},
	}
	itemAmountKeys = map[string][]string{
		"devengo_items":            {"importe"},
		"deduccion_items":          {"importe"},
		"aportacion_empresa_items": {"base", "tipo", "importe"},
	}
)

// StripFences removes a Markdown code fence around a model answer.
func StripFences(s string) string {
	if m := reFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// NormalizeAndSanitizeJSON
// - Strips Markdown fences and repairs malformed JSON
// - Renames known synonyms (devengos -> devengo_items, concepto_raw -> concepto)
// - Coerces amounts to numbers and dates to YYYY-MM-DD
// - Drops totales (always recomputed) and unknown keys
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	src := StripFences(string(raw))
	if src == "" {
		return nil, nil, fmt.Errorf("sanitize: empty answer")
	}

	dropped := make([]string, 0, 8)
	var m map[string]any
	if err := decodeNumbers([]byte(src), &m); err != nil {
		repaired, rErr := jsonrepair.RepairJSON(src)
		if rErr != nil {
			return nil, nil, fmt.Errorf("sanitize: repair: %w", rErr)
		}
		if err := decodeNumbers([]byte(repaired), &m); err != nil {
			return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
		}
		dropped = append(dropped, "(repaired)")
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: answer is not an object")
	}

	renamed := func(obj map[string]any, from, to string) {
		if v, ok := obj[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := obj[to]; !exists {
				obj[to] = v
			}
			delete(obj, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to our schema
	renamed(m, "devengos", "devengo_items")
	renamed(m, "deducciones", "deduccion_items")
	renamed(m, "aportaciones", "aportacion_empresa_items")
	renamed(m, "aportacion_empresa", "aportacion_empresa_items")

	// 2) header objects: trim strings, empty -> null, fix dates
	for key, fields := range headerKeys {
		obj, _ := m[key].(map[string]any)
		if obj == nil {
			obj = map[string]any{}
		}
		clean := make(map[string]any, len(fields))
		for _, f := range fields {
			v, ok := obj[f]
			if !ok {
				continue
			}
			if f == "dias" {
				clean[f] = json.Number(strconv.Itoa(coerceDias(v)))
				continue
			}
			clean[f] = cleanString(v, f == "desde" || f == "hasta")
		}
		for k := range obj {
			if _, ok := clean[k]; !ok {
				dropped = append(dropped, key+"."+k+"(unknown)")
			}
		}
		m[key] = clean
	}

	// 3) item lists
	for key, amountKeys := range itemAmountKeys {
		list, ok := m[key].([]any)
		if !ok && m[key] != nil {
			dropped = append(dropped, key+"(type)")
		}
		out := make([]any, 0, len(list))
		for i, el := range list {
			it, ok := el.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("%s[%d](type)", key, i))
				continue
			}
			renamed(it, "concepto_standardized", "concepto")
			renamed(it, "concepto_raw", "concepto")
			concepto, _ := it["concepto"].(string)
			// devengo and deduccion labels stay as printed
			concepto = strings.Join(strings.Fields(concepto), " ")
			if concepto == "" {
				dropped = append(dropped, fmt.Sprintf("%s[%d](no concepto)", key, i))
				continue
			}
			if key == "aportacion_empresa_items" {
				if c, ok := constants.Canonicalize(concepto); ok {
					concepto = string(c)
				} else {
					concepto = strings.ToUpper(concepto)
				}
			}
			clean := map[string]any{"concepto": concepto}
			for _, ak := range amountKeys {
				n, note := coerceAmount(it[ak])
				if note != "" {
					dropped = append(dropped, fmt.Sprintf("%s[%d].%s(%s)", key, i, ak, note))
				}
				clean[ak] = n
			}
			out = append(out, clean)
		}
		m[key] = out
	}

	// 4) totals are derived from the items
	delete(m, "totales")

	// 5) warnings: strings only
	var warnings []any
	if list, ok := m["warnings"].([]any); ok {
		for _, w := range list {
			if s, ok := w.(string); ok && strings.TrimSpace(s) != "" {
				warnings = append(warnings, strings.TrimSpace(s))
			}
		}
	}
	if warnings == nil {
		warnings = []any{}
	}
	m["warnings"] = warnings

	// 6) remove unknown keys
	allowed := map[string]struct{}{
		"empresa": {}, "trabajador": {}, "periodo": {}, "devengo_items": {},
		"deduccion_items": {}, "aportacion_empresa_items": {}, "warnings": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.verify.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func decodeNumbers(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func cleanString(v any, date bool) any {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	if date {
		if p := reSlashDate.FindStringSubmatch(s); p != nil {
			d, _ := strconv.Atoi(p[1])
			mo, _ := strconv.Atoi(p[2])
			s = fmt.Sprintf("%s-%02d-%02d", p[3], mo, d)
		}
	}
	return s
}

func coerceDias(v any) int {
	var n int
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err == nil {
			n = int(f)
		}
	case string:
		n, _ = strconv.Atoi(strings.TrimSpace(t))
	}
	if n < 0 || n > 31 {
		return 0
	}
	return n
}

// coerceAmount returns a two-decimal JSON number and a note when the value
// had to be repaired.
func coerceAmount(v any) (json.Number, string) {
	var (
		d    decimal.Decimal
		note string
	)
	switch t := v.(type) {
	case nil:
		note = "null"
	case json.Number:
		var err error
		if d, err = decimal.NewFromString(t.String()); err != nil {
			note = "invalid"
		}
	case string:
		s := strings.TrimSpace(strings.NewReplacer("€", "", "%", "", " ", "").Replace(t))
		if x, ok := nomina.ToDecimal(s); ok {
			d = x
		} else if x, err := decimal.NewFromString(s); err == nil {
			d = x
		} else {
			note = "invalid"
		}
		if note == "" {
			note = "string"
		}
	default:
		note = "type"
	}
	if d.IsNegative() {
		d = d.Abs()
		note = "negative"
	}
	return json.Number(d.Round(2).StringFixed(2)), note
}
