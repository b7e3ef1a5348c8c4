package mutation

import "strings"

// Apply rewrites content by applying every replacement in m, locating each
// find text by its resolved line number and falling back to the first
// occurrence in the file if the file has shifted since validation. Replacements are
// applied in descending line order so that earlier edits never invalidate
// the line numbers of edits still to come.
func Apply(content string, m Mutation) (string, bool) {
	lines := splitLines(content)

	ordered := make([]Replacement, len(m.Replacements))
	copy(ordered, m.Replacements)
	sortDescendingByLine(ordered)

	for _, r := range ordered {
		idx := r.LineNumber - 1
		if idx < 0 || idx >= len(lines) || !strings.Contains(lines[idx], r.Find) {
			line, ok := locateFind(lines, r.LineNumber, r.Find, len(lines))
			if !ok {
				return "", false
			}
			idx = line - 1
		}
		lines[idx] = strings.Replace(lines[idx], r.Find, r.Replace, 1)
	}

	return strings.Join(lines, "\n"), true
}

func sortDescendingByLine(replacements []Replacement) {
	for i := 1; i < len(replacements); i++ {
		for j := i; j > 0 && replacements[j].LineNumber > replacements[j-1].LineNumber; j-- {
			replacements[j], replacements[j-1] = replacements[j-1], replacements[j]
		}
	}
}
