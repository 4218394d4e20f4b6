package diagfmt

import (
	"strings"

	"winter/internal/diag"
)

// fixPreview returns the lines a fix removes and inserts. A fix replaces one
// whole line, but the replacement may itself span several lines.
func fixPreview(f *diag.Fix) (before, after []string) {
	if f == nil {
		return nil, nil
	}
	before = splitPreviewLines(f.OldText)
	after = splitPreviewLines(f.Replacement)
	return before, after
}

func splitPreviewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
