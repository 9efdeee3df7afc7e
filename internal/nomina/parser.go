package nomina

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrNotText is returned by ParseBytes for input that is not UTF-8 text.
var ErrNotText = errors.New("nomina: input is not text")

// ComputeTotales sums the line items. Liquido is devengos minus deducciones;
// the employer contribution total is informational only.
func ComputeTotales(dev []DevengoItem, ded []DeduccionItem, ap []AportacionEmpresaItem) Totales {
	var devSum, dedSum, apSum decimal.Decimal
	for _, it := range dev {
		devSum = devSum.Add(it.Importe.Decimal)
	}
	for _, it := range ded {
		dedSum = dedSum.Add(it.Importe.Decimal)
	}
	for _, it := range ap {
		apSum = apSum.Add(it.Importe.Decimal)
	}
	devTotal, dedTotal := devSum.Round(2), dedSum.Round(2)
	return Totales{
		DevengoTotal:           NewAmount(devTotal),
		DeduccionTotal:         NewAmount(dedTotal),
		AportacionEmpresaTotal: NewAmount(apSum),
		LiquidoAPercibir:       NewAmount(devTotal.Sub(dedTotal)),
	}
}

// ParseText reads one payslip page. It never fails: anything it cannot
// determine is left empty and, where actionable, reported in Warnings.
func ParseText(text string) Result {
	lines := ToLines(text)
	if len(lines) == 0 {
		return emptyResult()
	}

	h := ExtractHeader(lines)
	dev, ded, w1 := ExtractConceptos(lines)
	ap, w2 := ExtractAportacion(lines)

	warnings := make([]string, 0, len(w1)+len(w2))
	warnings = append(warnings, w1...)
	warnings = append(warnings, w2...)

	return Result{
		Empresa:                h.Empresa,
		Trabajador:             h.Trabajador,
		Periodo:                h.Periodo,
		DevengoItems:           dev,
		DeduccionItems:         ded,
		AportacionEmpresaItems: ap,
		Totales:                ComputeTotales(dev, ded, ap),
		Warnings:               warnings,
	}
}

// ParseBytes is ParseText for raw input; it rejects binary data.
func ParseBytes(b []byte) (Result, error) {
	if !utf8.Valid(b) || bytes.IndexByte(b, 0) >= 0 {
		return Result{}, ErrNotText
	}
	return ParseText(string(b)), nil
}

// Recompute returns a copy of r with empty lists materialised and totals
// derived from the line items again. Totals coming from elsewhere (a
// verification model) are never trusted.
func (r Result) Recompute() Result {
	out := r
	out.DevengoItems = append([]DevengoItem{}, r.DevengoItems...)
	out.DeduccionItems = append([]DeduccionItem{}, r.DeduccionItems...)
	out.AportacionEmpresaItems = append([]AportacionEmpresaItem{}, r.AportacionEmpresaItems...)
	out.Warnings = append([]string{}, r.Warnings...)
	out.Totales = ComputeTotales(out.DevengoItems, out.DeduccionItems, out.AportacionEmpresaItems)
	return out
}

func emptyResult() Result {
	return Result{
		DevengoItems:           []DevengoItem{},
		DeduccionItems:         []DeduccionItem{},
		AportacionEmpresaItems: []AportacionEmpresaItem{},
		Warnings:               []string{},
	}
}
