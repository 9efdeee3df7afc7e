package nomina

import (
	"strings"
)

// Lines is an ordered sequence of trimmed, non-empty text lines. Index order is
// the only notion of position the parser has. A Lines value is never mutated
// after construction; slices returned by FindBetween share its backing array.
type Lines []string

var diacritics = strings.NewReplacer(
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N",
)

// Normalize uppercases s and strips Spanish diacritics, so labels match
// regardless of case or accents (APORTACIÓN == aportacion).
func Normalize(s string) string {
	return diacritics.Replace(strings.ToUpper(s))
}

// ToLines splits text on any line break, trims every line and drops empty ones.
func ToLines(text string) Lines {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	out := make(Lines, 0, strings.Count(text, "\n")+1)
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

// Index returns the position of the first line at or after from that contains
// label, or -1.
func (l Lines) Index(label string, from int) int {
	want := Normalize(label)
	for i := max(from, 0); i < len(l); i++ {
		if strings.Contains(Normalize(l[i]), want) {
			return i
		}
	}
	return -1
}

// FindBetween returns the lines strictly after the first line containing start,
// up to but excluding the next line containing end. A missing start yields an
// empty sequence; a missing end yields everything to the end of the document.
func FindBetween(lines Lines, start, end string) Lines {
	i := lines.Index(start, 0)
	if i < 0 {
		return Lines{}
	}
	j := lines.Index(end, i+1)
	if j < 0 {
		j = len(lines)
	}
	return lines[i+1 : j : j]
}
