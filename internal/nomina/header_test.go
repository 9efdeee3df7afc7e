package nomina

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func TestExtractHeaderFixture(t *testing.T) {
	h := ExtractHeader(ToLines(loadFixture(t, "nomina_completa.txt")))

	require.NotNil(t, h.Empresa.CIF)
	assert.Equal(t, "B12345678", *h.Empresa.CIF)
	require.NotNil(t, h.Empresa.RazonSocial)
	assert.Equal(t, "TALLERES GARCIA SL", *h.Empresa.RazonSocial)

	require.NotNil(t, h.Trabajador.Nombre)
	assert.Equal(t, "PEREZ LOPEZ, JUAN", *h.Trabajador.Nombre)
	require.NotNil(t, h.Trabajador.DNI)
	assert.Equal(t, "12345678Z", *h.Trabajador.DNI)

	require.NotNil(t, h.Periodo.Desde)
	require.NotNil(t, h.Periodo.Hasta)
	assert.Equal(t, "2024-03-01", *h.Periodo.Desde)
	assert.Equal(t, "2024-03-31", *h.Periodo.Hasta)
	assert.Equal(t, 30, h.Periodo.Dias)
}

func TestExtractEmpresa(t *testing.T) {
	lines := ToLines(strings.Join([]string{
		"EMPRESA (razón social)",
		"12345",
		"ACME INDUSTRIAS S.A.",
		"...",
		"DOMICILIO",
		"A87654321",
	}, "\n"))

	e := ExtractEmpresa(lines)
	require.NotNil(t, e.RazonSocial)
	assert.Equal(t, "ACME INDUSTRIAS S.A", *e.RazonSocial)
	require.NotNil(t, e.CIF)
	assert.Equal(t, "A87654321", *e.CIF)
}

func TestExtractEmpresaCIFOnlyInFirstLines(t *testing.T) {
	var b strings.Builder
	for range cifScanLines {
		b.WriteString("RELLENO\n")
	}
	b.WriteString("B12345678\n")

	e := ExtractEmpresa(ToLines(b.String()))
	assert.Nil(t, e.CIF)
	assert.Nil(t, e.RazonSocial)
}

func TestExtractTrabajador(t *testing.T) {
	lines := ToLines(strings.Join([]string{
		"TRABAJADOR (nombre)",
		"DNI",
		"NUM.AFILIACION",
		"GOMEZ",
		"MARTINEZ RUIZ, ANA MARIA",
		"NIE x1234567l",
		"Y7654321B",
		"CONT. TEMPORAL",
		"A MUCH LONGER LINE OUTSIDE THE BLOCK",
	}, "\n"))

	w := ExtractTrabajador(lines)
	require.NotNil(t, w.Nombre)
	assert.Equal(t, "MARTINEZ RUIZ, ANA MARIA", *w.Nombre)
	require.NotNil(t, w.DNI)
	assert.Equal(t, "Y7654321B", *w.DNI)
}

func TestExtractTrabajadorMissingBlock(t *testing.T) {
	w := ExtractTrabajador(ToLines("NOMBRE SUELTO\n12345678Z"))
	assert.Nil(t, w.Nombre)
	assert.Nil(t, w.DNI)
}

func TestExtractPeriodo(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		desde string
		hasta string
		dias  int
	}{
		{
			name:  "latest date is chronological",
			lines: []string{"PERIODO DEVENGADO", "31-12-2023", "15-01-2024", "DEVENGO"},
			desde: "2024-01-01",
			hasta: "2024-01-15",
		},
		{
			name:  "invalid dates are skipped",
			lines: []string{"PERIODO DEVENGADO", "10-02-2024 31-02-2024", "DEVENGO"},
			desde: "2024-02-01",
			hasta: "2024-02-10",
		},
		{
			name:  "dias takes the first plausible count",
			lines: []string{"DÍAS", "5", "31,00", "28", "30"},
			dias:  28,
		},
		{
			name:  "dias too far from label",
			lines: []string{"DIAS", "A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "30"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := ExtractPeriodo(ToLines(strings.Join(tc.lines, "\n")))
			if tc.hasta == "" {
				assert.Nil(t, p.Hasta)
				assert.Nil(t, p.Desde)
			} else {
				require.NotNil(t, p.Hasta)
				require.NotNil(t, p.Desde)
				assert.Equal(t, tc.hasta, *p.Hasta)
				assert.Equal(t, tc.desde, *p.Desde)
			}
			assert.Equal(t, tc.dias, p.Dias)
		})
	}
}
