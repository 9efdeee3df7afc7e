package nomina

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	cifRe    = regexp.MustCompile(`\b[ABCDEFGHJNPQRSUVW]\d{8}[A-Z]?\b`)
	dniRe    = regexp.MustCompile(`\b(?:[XYZxyz]\d{7}[A-Za-z]|\d{8}[A-Za-z])\b`)
	dateRe   = regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`)
	letterRe = regexp.MustCompile(`[A-Za-zÁÉÍÓÚÜÑáéíóúüñ]`)
)

const (
	cifScanLines   = 100
	diasScanLines  = 14
	minDias        = 20
	maxDias        = 31
	printedDateFmt = "02-01-2006"
	isoDateFmt     = "2006-01-02"
)

// label lines that sit inside the worker block and are never a name
var workerNoise = func() map[string]struct{} {
	m := map[string]struct{}{}
	for _, s := range []string{"D.N.I.", "NºAFILIACION S.S.", "NºAFILIACION", "NUM.AFILIACION", "AFILIACION", "S.S.", "DNI"} {
		m[Normalize(s)] = struct{}{}
	}
	return m
}()

func hasLetter(s string) bool { return letterRe.MatchString(s) }

// ExtractHeader reads employer, employee and period. Misses are left nil.
func ExtractHeader(lines Lines) Header {
	return Header{
		Empresa:    ExtractEmpresa(lines),
		Trabajador: ExtractTrabajador(lines),
		Periodo:    ExtractPeriodo(lines),
	}
}

func ExtractEmpresa(lines Lines) Empresa {
	var e Empresa
	for _, ln := range lines[:min(len(lines), cifScanLines)] {
		if m := cifRe.FindString(ln); m != "" {
			e.CIF = strPtr(m)
			break
		}
	}

	block := FindBetween(lines, "EMPRESA (razón social)", "DOMICILIO")
	for i := len(block) - 1; i >= 0; i-- {
		if hasLetter(block[i]) {
			if name := strings.Trim(block[i], " ."); name != "" {
				e.RazonSocial = strPtr(name)
			}
			break
		}
	}
	return e
}

func ExtractTrabajador(lines Lines) Trabajador {
	var t Trabajador
	block := FindBetween(lines, "TRABAJADOR (nombre)", "CONT.")

	best := ""
	for _, ln := range block {
		if ms := dniRe.FindAllString(ln, -1); len(ms) > 0 {
			t.DNI = strPtr(strings.ToUpper(ms[len(ms)-1]))
			continue
		}
		if _, noise := workerNoise[Normalize(ln)]; noise {
			continue
		}
		if hasLetter(ln) && len(ln) > len(best) {
			best = ln
		}
	}
	if best != "" {
		t.Nombre = strPtr(best)
	}
	return t
}

func ExtractPeriodo(lines Lines) Periodo {
	var p Periodo

	block := FindBetween(lines, "PERIODO DEVENGADO", "DEVENGO")
	if len(block) == 0 {
		block = FindBetween(lines, "PERIODO DEVENGADO", "CONCEPTO")
	}
	var hasta time.Time
	for _, m := range dateRe.FindAllString(strings.Join(block, "\n"), -1) {
		d, err := time.Parse(printedDateFmt, m)
		if err != nil {
			continue
		}
		if d.After(hasta) {
			hasta = d
		}
	}
	if !hasta.IsZero() {
		desde := time.Date(hasta.Year(), hasta.Month(), 1, 0, 0, 0, 0, time.UTC)
		p.Hasta = strPtr(hasta.Format(isoDateFmt))
		p.Desde = strPtr(desde.Format(isoDateFmt))
	}

	for i, ln := range lines {
		if Normalize(ln) != "DIAS" {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+diasScanLines; j++ {
			if n, ok := digits(lines[j]); ok && n >= minDias && n <= maxDias {
				p.Dias = n
				break
			}
		}
		break
	}
	return p
}

// digits parses s when it is made of ASCII digits only.
func digits(s string) (int, bool) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
