package llm

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/nominas/constants"
)

const maxPromptText = 6000

// BuildSystemPrompt composes the system message: role, output rules and the
// JSON schema the answer must match.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert reader of Spanish payslips (nóminas). Return ONLY one JSON object that matches the JSON Schema below.",
		"Do not wrap the JSON in Markdown, and do not add comments or explanations.",
		"If the document holds several payslips, read only the first one.",
		"Worker and company names are UPPERCASE. Devengo and deduccion concepts are copied as printed. Dates are ISO-8601 (YYYY-MM-DD); 'desde' is the first day of the accrued month.",
		"Amounts are plain JSON numbers with two decimals, using '.' as decimal separator. Never output strings for amounts.",
		"'devengo_items' are earnings (SALARIO BASE, PLUS, PAGA EXTRA...). 'deduccion_items' are worker deductions (IRPF, CONT. COMUNES, DESEMPLEO, FORMACION...).",
		"'aportacion_empresa_items' are employer contributions with base, tipo (percent) and importe. Allowed concepts, in this order: " +
			strings.Join(constants.AsStringSlice(), ", ") + ".",
		"A draft produced by a deterministic parser is provided. Correct it against the document; keep values that are right.",
		"Missing header fields are null. Never invent values that are not printed.",
		"Keep every warning of the draft, in order, at the start of 'warnings'.",
		"For every value you add, remove or change with respect to the draft, append one more string to 'warnings' explaining what you changed and why.",
		"Warnings are short English sentences.",
		"JSON Schema:\n" + mustJSON(BuildPayslipJSONSchema()),
	}
	return strings.Join(parts, "\n")
}

// BuildUserPrompt packages the draft and, when no image is attached, the page text.
func BuildUserPrompt(req VerifyRequest, imageAttached bool) string {
	var b strings.Builder
	if req.Page > 0 {
		b.WriteString("Page: ")
		b.WriteString(strconv.Itoa(req.Page))
		b.WriteString("\n")
	}
	b.WriteString("Draft:\n")
	b.WriteString(mustJSON(req.Parsed))
	b.WriteString("\n")

	if !imageAttached {
		txt := strings.TrimSpace(req.Text)
		b.WriteString("\nPage text:\n")
		if len(txt) > maxPromptText {
			b.WriteString(strings.ToValidUTF8(txt[:maxPromptText], ""))
			b.WriteString("\n…(truncated)")
		} else {
			b.WriteString(txt)
		}
	} else {
		b.WriteString("\nAn image of the payslip page is attached. Read the values from the image.\n")
	}
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
