package nomina

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	devengoBackWindow   = 20
	devengoFwdWindow    = 8
	deduccionBackWindow = 8
	noiseMinCount       = 3
	irpfLabel           = "RETENCION IRPF"
)

var (
	noiseMaxValue  = decimal.RequireFromString("50.00")
	minDevengo     = decimal.RequireFromString("5.00")
	deductPrefixes = []string{"DTO.", "RETENCION IRPF", "RETENCION I.R.P.F"}
)

// tokenSet is a read-only set of money tokens, keyed by their printed form.
type tokenSet map[string]struct{}

func (s tokenSet) has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// noiseTokens returns the small strict tokens that repeat across the block
// (unit prices such as "17,00"); they are never accrual amounts.
func noiseTokens(block Lines) tokenSet {
	counts := map[string]int{}
	for _, ln := range block {
		if IsMoney(ln) {
			counts[ln]++
		}
	}
	out := tokenSet{}
	for tok, n := range counts {
		if n < noiseMinCount {
			continue
		}
		if v, ok := ToDecimal(tok); ok && v.LessThanOrEqual(noiseMaxValue) {
			out[tok] = struct{}{}
		}
	}
	return out
}

// conceptScan holds the state of one pass over the concept table.
type conceptScan struct {
	block    Lines
	noise    tokenSet
	devengos []DevengoItem
	deducts  []DeduccionItem
	warnings []string
}

// lineRule is one classification step. Rules are tried in order against the
// normalized label; the first match handles the line.
type lineRule struct {
	name   string
	match  func(norm string) bool
	handle func(s *conceptScan, i int, norm string)
}

var conceptRules = []lineRule{
	{name: "section", match: isSectionLabel, handle: func(*conceptScan, int, string) {}},
	{name: "deduccion", match: isDeduccionLabel, handle: (*conceptScan).deduccion},
	{name: "devengo", match: func(string) bool { return true }, handle: (*conceptScan).devengo},
}

func isSectionLabel(norm string) bool {
	return strings.HasPrefix(norm, "TOTAL") || strings.Contains(norm, "DETERMINACION")
}

func isDeduccionLabel(norm string) bool {
	for _, p := range deductPrefixes {
		if strings.HasPrefix(norm, p) {
			return true
		}
	}
	return false
}

// ExtractConceptos walks the concept table (CONCEPTO .. TOTAL DEVENGO) and
// returns earnings, deductions and a warning per earning without an amount.
func ExtractConceptos(lines Lines) ([]DevengoItem, []DeduccionItem, []string) {
	block := FindBetween(lines, "CONCEPTO", "TOTAL DEVENGO")
	if len(block) == 0 {
		block = FindBetween(lines, "CONCEPTO", "DETERMINACION")
	}

	s := &conceptScan{
		block:    block,
		noise:    noiseTokens(block),
		devengos: []DevengoItem{},
		deducts:  []DeduccionItem{},
		warnings: []string{},
	}
	for i, ln := range block {
		if !hasLetter(ln) || IsMoneyAny(ln) {
			continue
		}
		norm := Normalize(ln)
		for _, r := range conceptRules {
			if r.match(norm) {
				r.handle(s, i, norm)
				break
			}
		}
	}
	return s.devengos, s.deducts, s.warnings
}

func (s *conceptScan) deduccion(i int, norm string) {
	for j := i - 1; j >= 0 && j >= i-deduccionBackWindow; j-- {
		v, ok := strictValue(s.block[j])
		if !ok {
			continue
		}
		label := s.block[i]
		if strings.HasPrefix(norm, "RETENCION") {
			label = irpfLabel
		}
		s.deducts = append(s.deducts, DeduccionItem{Concepto: label, Importe: NewAmount(v)})
		return
	}
}

func (s *conceptScan) devengo(i int, _ string) {
	v, ok := s.devengoAmount(i)
	if !ok {
		s.warnings = append(s.warnings, fmt.Sprintf("No amount for devengo concept '%s'", s.block[i]))
		return
	}
	s.devengos = append(s.devengos, DevengoItem{Concepto: s.block[i], Importe: NewAmount(v)})
}

// devengoAmount resolves an earning amount: nearest value >= 5.00 behind the
// label, then the largest value behind it, then nearest >= 5.00 ahead, and
// finally the smallest sub-5.00 value seen.
func (s *conceptScan) devengoAmount(i int) (decimal.Decimal, bool) {
	var (
		low    decimal.Decimal
		hasLow bool
	)
	keepLow := func(v decimal.Decimal) {
		if !hasLow || v.LessThan(low) {
			low, hasLow = v, true
		}
	}

	lo := max(0, i-devengoBackWindow)
	for j := i - 1; j >= lo; j-- {
		v, ok := s.candidate(j)
		if !ok {
			continue
		}
		if v.GreaterThanOrEqual(minDevengo) {
			return v, true
		}
		keepLow(v)
	}

	var (
		best    decimal.Decimal
		hasBest bool
	)
	for j := lo; j < i; j++ {
		if v, ok := s.candidate(j); ok && (!hasBest || v.GreaterThan(best)) {
			best, hasBest = v, true
		}
	}
	if hasBest {
		return best, true
	}

	for j := i + 1; j < len(s.block) && j <= i+devengoFwdWindow; j++ {
		v, ok := s.candidate(j)
		if !ok {
			continue
		}
		if v.GreaterThanOrEqual(minDevengo) {
			return v, true
		}
		keepLow(v)
	}

	return low, hasLow
}

// candidate returns the value at j when it is a strict, non-noise token.
func (s *conceptScan) candidate(j int) (decimal.Decimal, bool) {
	if s.noise.has(s.block[j]) {
		return decimal.Zero, false
	}
	return strictValue(s.block[j])
}

func strictValue(tok string) (decimal.Decimal, bool) {
	if !IsMoney(tok) {
		return decimal.Zero, false
	}
	return ToDecimal(tok)
}
