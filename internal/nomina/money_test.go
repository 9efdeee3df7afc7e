package nomina

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMoney(t *testing.T) {
	tests := []struct {
		tok    string
		strict bool
		loose  bool
	}{
		{"1.557,19", true, true},
		{"0,60", true, true},
		{"1.234.567,89", true, true},
		{"17,0000", false, true},
		{"4,835", false, true},
		{"1557,19", false, false},
		{"1.55,19", false, false},
		{"12,5", false, false},
		{"-45,23", false, false},
		{"45.23", false, false},
		{"4,83%", false, false},
		{"", false, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.strict, IsMoney(tc.tok), "IsMoney(%q)", tc.tok)
		assert.Equal(t, tc.loose, IsMoneyAny(tc.tok), "IsMoneyAny(%q)", tc.tok)
	}
}

func TestToDecimalRoundTrip(t *testing.T) {
	for _, tok := range []string{"0,00", "5,00", "17,00", "259,27", "1.557,19", "12.345,60", "1.000.000,01"} {
		d, ok := ToDecimal(tok)
		require.True(t, ok, tok)
		assert.Equal(t, tok, FormatMoney(d))

		back, ok := ToDecimal(FormatMoney(d))
		require.True(t, ok)
		assert.True(t, back.Equal(d), tok)
	}
}

func TestToDecimalRejectsNonTokens(t *testing.T) {
	for _, s := range []string{"", "abc", "1557.19", "1,5", "SALARIO BASE"} {
		_, ok := ToDecimal(s)
		assert.False(t, ok, s)
	}
}

func TestFormatMoneyNegative(t *testing.T) {
	assert.Equal(t, "-1.234,50", FormatMoney(decimal.RequireFromString("-1234.5")))
}

func TestAmountJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
		Z Amount `json:"z"`
	}{A: MustAmount("9.3"), B: MustAmount("1557.19")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":9.30,"b":1557.19,"z":0.00}`, string(b))
	assert.Contains(t, string(b), `"a":9.30`)
}

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`9.3`, "9.30"},
		{`"24.27"`, "24.27"},
		{`"1.557,19"`, "1557.19"},
		{`null`, "0.00"},
		{`""`, "0.00"},
		{`85.645`, "85.65"},
	}
	for _, tc := range tests {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(tc.in), &a), tc.in)
		assert.Equal(t, tc.want, a.String(), tc.in)
	}

	var a Amount
	assert.Error(t, json.Unmarshal([]byte(`"n/a"`), &a))
}
