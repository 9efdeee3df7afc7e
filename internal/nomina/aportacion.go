package nomina

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/nominas/constants"
)

const (
	WarnNoAportacion = "No APORTACIÓN EMPRESA section"
	WarnNoBTC        = "No se pudo detectar la Base Total de Cotización (TOTAL)."
	WarnHorasExtra   = "HORAS EXTRA detectado: por ahora se usa BTC como base; pendiente aplicar BTC + importe_horas_extra."

	btcAnchorWindow = 4
	nearbyWindow    = 10
)

var (
	minBTC = decimal.NewFromInt(300)

	tipoFP     = decimal.RequireFromString("0.60")
	tipoFOGASA = decimal.RequireFromString("0.20")

	tiposDesempleo = []decimal.Decimal{
		decimal.RequireFromString("5.50"),
		decimal.RequireFromString("6.70"),
	}

	atMin     = decimal.RequireFromString("1.50")
	atMax     = decimal.RequireFromString("7.15")
	atDefault = decimal.RequireFromString("3.70")

	ccMaxToken = decimal.NewFromInt(50)
	ccMin      = decimal.NewFromInt(15)
	ccMax      = decimal.NewFromInt(30)
	ccDefault  = decimal.RequireFromString("24.27")

	// printed importes within this distance of the computed one are preferred
	printedTolerance = decimal.RequireFromString("0.02")
)

// aportacionSection is the APORTACIÓN EMPRESA block of one page.
type aportacionSection struct {
	lines Lines
}

// ExtractAportacion computes the five employer contribution items from the
// Base Total de Cotización. Missing section or base yields no items and a
// warning; nothing is fabricated.
func ExtractAportacion(lines Lines) ([]AportacionEmpresaItem, []string) {
	items := []AportacionEmpresaItem{}

	start := lines.Index("APORTACIÓN EMPRESA", 0)
	if start < 0 {
		return items, []string{WarnNoAportacion}
	}
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		n := Normalize(lines[i])
		if strings.Contains(n, "BASE SUJETA A RETENCION") || strings.Contains(n, "RECIBI") {
			end = i
			break
		}
	}
	sec := aportacionSection{lines: lines[start+1 : end : end]}

	btc, ok := sec.baseTotal()
	if !ok {
		return items, []string{WarnNoBTC}
	}

	warnings := []string{}
	if hasHorasExtra(lines) {
		warnings = append(warnings, WarnHorasExtra)
	}

	fp := fixedItem(constants.FormacionProfesional, btc, tipoFP)
	fogasa := fixedItem(constants.FondoGarantiaSalarial, btc, tipoFOGASA)
	des := sec.desempleo(btc)
	at := sec.atYEP(btc, fp.Importe.Decimal, fogasa.Importe.Decimal, des.Importe.Decimal)
	cc := sec.contingenciasComunes(btc)

	items = append(items, fp, fogasa, des, at, cc)
	for i := range items {
		sec.snapToPrinted(&items[i])
	}
	return items, warnings
}

func hasHorasExtra(lines Lines) bool {
	for _, ln := range lines {
		if strings.Contains(Normalize(ln), "HORAS EXTRA") {
			return true
		}
	}
	return false
}

// baseTotal finds the BTC: the first value >= 300 within a few lines after a
// TOTAL line, else the last value >= 300 in the section.
func (s aportacionSection) baseTotal() (decimal.Decimal, bool) {
	for j, ln := range s.lines {
		if !strings.Contains(Normalize(ln), "TOTAL") {
			continue
		}
		for k := j + 1; k < len(s.lines) && k <= j+btcAnchorWindow; k++ {
			if v, ok := strictValue(s.lines[k]); ok && v.GreaterThanOrEqual(minBTC) {
				return v, true
			}
		}
	}
	for j := len(s.lines) - 1; j >= 0; j-- {
		if v, ok := strictValue(s.lines[j]); ok && v.GreaterThanOrEqual(minBTC) {
			return v, true
		}
	}
	return decimal.Zero, false
}

func (s aportacionSection) index(c constants.Concept) int {
	return s.lines.Index(string(c), 0)
}

// nearby collects the distinct money values around idx, nearest first, the
// line above before the line below at equal distance.
func (s aportacionSection) nearby(idx int) []decimal.Decimal {
	var out []decimal.Decimal
	add := func(j int) {
		if j < 0 || j >= len(s.lines) {
			return
		}
		v, ok := strictValue(s.lines[j])
		if !ok {
			return
		}
		for _, seen := range out {
			if seen.Equal(v) {
				return
			}
		}
		out = append(out, v)
	}
	for d := 1; d <= nearbyWindow; d++ {
		add(idx - d)
		add(idx + d)
	}
	return out
}

func fixedItem(c constants.Concept, base, tipo decimal.Decimal) AportacionEmpresaItem {
	return newItem(c, base, tipo, percentOf(base, tipo))
}

func newItem(c constants.Concept, base, tipo, importe decimal.Decimal) AportacionEmpresaItem {
	return AportacionEmpresaItem{
		Concepto: string(c),
		Base:     NewAmount(base),
		Tipo:     NewAmount(tipo),
		Importe:  NewAmount(importe),
	}
}

// desempleo picks between the two legal rates the one whose importe is
// closest to a printed value near the label.
func (s aportacionSection) desempleo(base decimal.Decimal) AportacionEmpresaItem {
	idx := s.index(constants.Desempleo)
	if idx < 0 {
		return fixedItem(constants.Desempleo, base, tiposDesempleo[0])
	}
	around := s.nearby(idx)

	var (
		bestTipo, bestImp, bestDist decimal.Decimal
		found                       bool
	)
	for _, t := range tiposDesempleo {
		target := percentOf(base, t)
		dist := decimal.Zero
		if len(around) > 0 {
			dist = closestDistance(target, around)
		}
		if !found || dist.LessThan(bestDist) {
			bestTipo, bestImp, bestDist, found = t, target, dist, true
		}
	}
	return newItem(constants.Desempleo, base, bestTipo, bestImp)
}

// atYEP backs a rate out of each nearby printed value not already claimed by
// another item and keeps the most self-consistent one within the legal range.
func (s aportacionSection) atYEP(base decimal.Decimal, used ...decimal.Decimal) AportacionEmpresaItem {
	idx := s.index(constants.ATyEP)
	if idx < 0 {
		return fixedItem(constants.ATyEP, base, atDefault)
	}

	var (
		bestTipo, bestGap decimal.Decimal
		found             bool
	)
	for _, v := range s.nearby(idx) {
		if containsValue(used, v) {
			continue
		}
		t := v.Shift(2).DivRound(base, 2)
		if t.LessThan(atMin) || t.GreaterThan(atMax) {
			continue
		}
		gap := percentOf(base, t).Sub(v).Abs()
		if !found || gap.LessThan(bestGap) {
			bestTipo, bestGap, found = t, gap, true
		}
	}
	if !found {
		bestTipo = atDefault
	}
	return fixedItem(constants.ATyEP, base, bestTipo)
}

// contingenciasComunes takes a percentage-shaped value near the label,
// preferring the one closest to the general rate.
func (s aportacionSection) contingenciasComunes(base decimal.Decimal) AportacionEmpresaItem {
	tipo := ccDefault
	if idx := s.index(constants.ContingenciasComunes); idx >= 0 {
		var (
			best  decimal.Decimal
			found bool
		)
		for _, v := range s.nearby(idx) {
			if v.GreaterThan(ccMaxToken) || v.LessThan(ccMin) || v.GreaterThan(ccMax) {
				continue
			}
			if !found || v.Sub(ccDefault).Abs().LessThan(best.Sub(ccDefault).Abs()) {
				best, found = v, true
			}
		}
		if found {
			tipo = best
		}
	}
	return fixedItem(constants.ContingenciasComunes, base, tipo)
}

// snapToPrinted replaces the computed importe with the closest printed value
// below the base when the two differ by at most the tolerance.
func (s aportacionSection) snapToPrinted(it *AportacionEmpresaItem) {
	idx := s.lines.Index(it.Concepto, 0)
	if idx < 0 {
		return
	}
	computed := percentOf(it.Base.Decimal, it.Tipo.Decimal)

	var (
		obs   decimal.Decimal
		found bool
	)
	for _, v := range s.nearby(idx) {
		if !v.LessThan(it.Base.Decimal) {
			continue
		}
		if !found || v.Sub(computed).Abs().LessThan(obs.Sub(computed).Abs()) {
			obs, found = v, true
		}
	}
	if found && obs.Sub(computed).Abs().LessThanOrEqual(printedTolerance) {
		it.Importe = NewAmount(obs)
	}
}

func closestDistance(target decimal.Decimal, values []decimal.Decimal) decimal.Decimal {
	best := target.Sub(values[0]).Abs()
	for _, v := range values[1:] {
		if d := target.Sub(v).Abs(); d.LessThan(best) {
			best = d
		}
	}
	return best
}

func containsValue(values []decimal.Decimal, v decimal.Decimal) bool {
	for _, u := range values {
		if u.Equal(v) {
			return true
		}
	}
	return false
}
