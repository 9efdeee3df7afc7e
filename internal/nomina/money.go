package nomina

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// strict: thousands with '.', exactly two decimals after ','
	moneyStrict = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2}$`)
	// loose: same, but two to four decimals (unit prices, rates)
	moneyLoose = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2,4}$`)
)

// IsMoney reports whether s is a strict Spanish money token ("1.557,19").
func IsMoney(s string) bool { return moneyStrict.MatchString(s) }

// IsMoneyAny reports whether s is a money token with two to four decimals.
func IsMoneyAny(s string) bool { return moneyLoose.MatchString(s) }

// ToDecimal converts a Spanish-formatted token to an exact decimal. It reports
// false for anything that is not a money token.
func ToDecimal(tok string) (decimal.Decimal, bool) {
	if !IsMoneyAny(tok) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(tok, ".", ""), ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatMoney renders d with '.' thousands, ',' decimals and two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// Amount is a monetary value (or a percentage rate) with two fractional digits.
// It marshals to JSON as a bare number, always with exactly two decimals.
type Amount struct {
	decimal.Decimal
}

// NewAmount rounds d half away from zero to cents.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d.Round(2)}
}

// MustAmount parses a plain decimal string ("24.27"); it panics on bad input
// and is meant for constants.
func MustAmount(s string) Amount {
	return NewAmount(decimal.RequireFromString(s))
}

func (a Amount) String() string { return a.StringFixed(2) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

// UnmarshalJSON accepts JSON numbers, numeric strings and Spanish-formatted
// strings. null decodes to zero.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		a.Decimal = decimal.Zero
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			a.Decimal = decimal.Zero
			return nil
		}
		if d, ok := ToDecimal(raw); ok {
			a.Decimal = d.Round(2)
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("amount %q: %w", raw, err)
	}
	a.Decimal = d.Round(2)
	return nil
}

// percentOf returns round(base * tipo / 100, 2).
func percentOf(base, tipo decimal.Decimal) decimal.Decimal {
	return base.Mul(tipo).Shift(-2).Round(2)
}
