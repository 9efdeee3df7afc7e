package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/nominas/internal/nomina"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

const (
	SheetPayslips = "Nominas"
	SheetConcepts = "Conceptos"

	// built-in "#,##0.00"
	numFmtMoney = 4
	maxWarnings = 240
)

// Lister is the repository subset the exporter reads from.
type Lister interface {
	ListPayslips(ctx context.Context, filter repository.Filter) ([]*repository.PayslipRecord, error)
}

// Service produces XLSX workbooks from stored payslips.
type Service struct {
	repo   Lister
	logger *slog.Logger
}

func NewService(repo Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

var payslipHeaders = []string{
	"Documento", "Página", "Estado", "Verificada",
	"Empresa", "CIF", "Trabajador", "DNI",
	"Desde", "Hasta", "Días",
	"Devengos", "Deducciones", "Aportación empresa", "Líquido a percibir",
	"Avisos",
}

var conceptHeaders = []string{
	"Documento", "Página", "DNI", "Hasta", "Tipo", "Concepto", "Base", "Tipo %", "Importe",
}

// ExportXLSX returns a workbook with one row per stored page (sheet Nominas)
// and one row per line item (sheet Conceptos).
func (s *Service) ExportXLSX(ctx context.Context, filter repository.Filter) ([]byte, error) {
	start := time.Now()

	recs, err := s.repo.ListPayslips(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query payslips: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetPayslips); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetConcepts); err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for _, sh := range []struct {
		name    string
		headers []string
	}{{SheetPayslips, payslipHeaders}, {SheetConcepts, conceptHeaders}} {
		for i, h := range sh.headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			_ = f.SetCellValue(sh.name, cell, h)
		}
		last, _ := excelize.CoordinatesToCellName(len(sh.headers), 1)
		_ = f.SetCellStyle(sh.name, "A1", last, bold)
		_ = f.SetPanes(sh.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	row, crow := 2, 2
	for _, rec := range recs {
		r := rec.Result
		docID := rec.DocumentID.String()

		write := func(sheet string, col, row int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		values := []any{
			docID, rec.Page, string(rec.Status), rec.Verified,
			str(r.Empresa.RazonSocial), str(r.Empresa.CIF), str(r.Trabajador.Nombre), str(r.Trabajador.DNI),
			str(r.Periodo.Desde), str(r.Periodo.Hasta), r.Periodo.Dias,
			num(r.Totales.DevengoTotal), num(r.Totales.DeduccionTotal),
			num(r.Totales.AportacionEmpresaTotal), num(r.Totales.LiquidoAPercibir),
			truncate(strings.Join(r.Warnings, "; "), maxWarnings),
		}
		for i, v := range values {
			write(SheetPayslips, i+1, row, v)
		}
		row++

		concept := func(kind, concepto string, base, tipo any, importe nomina.Amount) {
			for i, v := range []any{docID, rec.Page, str(r.Trabajador.DNI), str(r.Periodo.Hasta), kind, concepto, base, tipo, num(importe)} {
				write(SheetConcepts, i+1, crow, v)
			}
			crow++
		}
		for _, it := range r.DevengoItems {
			concept("DEVENGO", it.Concepto, "", "", it.Importe)
		}
		for _, it := range r.DeduccionItems {
			concept("DEDUCCION", it.Concepto, "", "", it.Importe)
		}
		for _, it := range r.AportacionEmpresaItems {
			concept("APORTACION", it.Concepto, num(it.Base), num(it.Tipo), it.Importe)
		}
	}

	if row > 2 {
		end, _ := excelize.CoordinatesToCellName(15, row-1)
		_ = f.SetCellStyle(SheetPayslips, "L2", end, money)
	}
	if crow > 2 {
		end, _ := excelize.CoordinatesToCellName(9, crow-1)
		_ = f.SetCellStyle(SheetConcepts, "G2", end, money)
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetPayslips, "A", "A", 38) // document id
	_ = f.SetColWidth(SheetPayslips, "E", "E", 32) // empresa
	_ = f.SetColWidth(SheetPayslips, "G", "G", 32) // trabajador
	_ = f.SetColWidth(SheetPayslips, "L", "O", 16) // amounts
	_ = f.SetColWidth(SheetPayslips, "P", "P", 60) // warnings
	_ = f.SetColWidth(SheetConcepts, "A", "A", 38)
	_ = f.SetColWidth(SheetConcepts, "F", "F", 36) // concepto
	_ = f.SetColWidth(SheetConcepts, "G", "I", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"payslips", len(recs),
		"concepts", crow-2,
		"dni", filter.DNI,
		"cif", filter.CIF,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(a nomina.Amount) float64 { return a.InexactFloat64() }

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
