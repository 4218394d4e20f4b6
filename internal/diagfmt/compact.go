package diagfmt

import (
	"bufio"
	"fmt"
	"io"

	"winter/internal/diag"
)

// Compact writes one "file:line:col: severity: rule_id: message" line per
// diagnostic.
func Compact(w io.Writer, ds []diag.Diagnostic, mode PathMode, baseDir string) error {
	bw := bufio.NewWriter(w)
	for _, d := range ds {
		loc := d.Location
		if _, err := fmt.Fprintf(bw, "%s:%d:%d: %s: %s: %s\n",
			formatPath(loc.File, mode, baseDir), loc.Line, loc.Column, d.Severity, d.RuleID, d.Message); err != nil {
			return err
		}
	}
	return bw.Flush()
}
