package export

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/nominas/constants"
	"github.com/joseph-ayodele/nominas/internal/nomina"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

type fakeLister struct {
	recs   []*repository.PayslipRecord
	err    error
	filter repository.Filter
}

func (f *fakeLister) ListPayslips(_ context.Context, filter repository.Filter) ([]*repository.PayslipRecord, error) {
	f.filter = filter
	return f.recs, f.err
}

func ptr(s string) *string { return &s }

func sampleRecord() *repository.PayslipRecord {
	r := nomina.Result{
		Empresa:    nomina.Empresa{RazonSocial: ptr("ACME SL"), CIF: ptr("B12345678")},
		Trabajador: nomina.Trabajador{Nombre: ptr("GARCIA LOPEZ, ANA"), DNI: ptr("12345678Z")},
		Periodo:    nomina.Periodo{Desde: ptr("2024-01-01"), Hasta: ptr("2024-01-31"), Dias: 30},
		DevengoItems: []nomina.DevengoItem{
			{Concepto: "SALARIO BASE", Importe: nomina.MustAmount("1200.00")},
			{Concepto: "PLUS TRANSPORTE", Importe: nomina.MustAmount("200.00")},
		},
		DeduccionItems: []nomina.DeduccionItem{
			{Concepto: "IRPF", Importe: nomina.MustAmount("213.71")},
		},
		AportacionEmpresaItems: []nomina.AportacionEmpresaItem{
			{Concepto: "CONTINGENCIAS COMUNES", Base: nomina.MustAmount("1600.00"), Tipo: nomina.MustAmount("23.60"), Importe: nomina.MustAmount("377.60")},
		},
		Warnings: []string{"periodo sin dias"},
	}.Recompute()
	return &repository.PayslipRecord{
		ID:         uuid.New(),
		DocumentID: uuid.MustParse("7d1f4a52-0c1e-4b8e-9a55-6a3f0f0c2e11"),
		Page:       1,
		Status:     constants.PageStatusParsed,
		Result:     r,
	}
}

func raw(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestExportXLSX(t *testing.T) {
	lister := &fakeLister{recs: []*repository.PayslipRecord{sampleRecord()}}
	svc := NewService(lister, nil)

	filter := repository.Filter{DNI: "12345678Z"}
	b, err := svc.ExportXLSX(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, filter, lister.filter)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPayslips, SheetConcepts}, f.GetSheetList())

	rows, err := f.GetRows(SheetPayslips)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, payslipHeaders, rows[0])
	assert.Equal(t, "7d1f4a52-0c1e-4b8e-9a55-6a3f0f0c2e11", rows[1][0])
	assert.Equal(t, "PARSED", rows[1][2])
	assert.Equal(t, "ACME SL", rows[1][4])
	assert.Equal(t, "12345678Z", rows[1][7])
	assert.Equal(t, "2024-01-31", rows[1][9])
	assert.Equal(t, "periodo sin dias", rows[1][15])

	assert.Equal(t, "1400", raw(t, f, SheetPayslips, "L2"))
	assert.Equal(t, "213.71", raw(t, f, SheetPayslips, "M2"))
	assert.Equal(t, "377.6", raw(t, f, SheetPayslips, "N2"))
	assert.Equal(t, "1186.29", raw(t, f, SheetPayslips, "O2"))

	concepts, err := f.GetRows(SheetConcepts)
	require.NoError(t, err)
	require.Len(t, concepts, 5)
	assert.Equal(t, conceptHeaders, concepts[0])
	assert.Equal(t, "DEVENGO", concepts[1][4])
	assert.Equal(t, "SALARIO BASE", concepts[1][5])
	assert.Equal(t, "DEDUCCION", concepts[3][4])
	assert.Equal(t, "APORTACION", concepts[4][4])
	assert.Equal(t, "CONTINGENCIAS COMUNES", concepts[4][5])
	assert.Equal(t, "1600", raw(t, f, SheetConcepts, "G5"))
	assert.Equal(t, "23.6", raw(t, f, SheetConcepts, "H5"))
	assert.Equal(t, "377.6", raw(t, f, SheetConcepts, "I5"))
}

func TestExportXLSX_Empty(t *testing.T) {
	svc := NewService(&fakeLister{}, nil)
	b, err := svc.ExportXLSX(context.Background(), repository.Filter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetPayslips)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExportXLSX_ListError(t *testing.T) {
	svc := NewService(&fakeLister{err: errors.New("boom")}, nil)
	_, err := svc.ExportXLSX(context.Background(), repository.Filter{})
	assert.ErrorContains(t, err, "query payslips")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "abc", truncate("abc", 0))
}
