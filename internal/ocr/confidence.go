package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`)
	reAmount = regexp.MustCompile(`(?m)^\d{1,3}(?:\.\d{3})*,\d{2}$`)
	reLabels = regexp.MustCompile(`(?i)\b(concepto|devengo|deducci|aportaci|l[ií]quido)`)
)

// TextConfidence scores how much a page's text looks like a payslip text
// layer, from 0 (nothing usable, probably a scan) to 1.
func TextConfidence(txt string) float32 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	score := float32(0.1)
	if reDate.MatchString(txt) {
		score += 0.2
	}
	if n := len(reAmount.FindAllStringIndex(txt, -1)); n > 0 {
		score += 0.2
		if n >= 5 {
			score += 0.1
		}
	}
	if n := len(reLabels.FindAllStringIndex(txt, -1)); n > 0 {
		score += 0.2
		if n >= 3 {
			score += 0.1
		}
	}
	if len(txt) > 400 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
