package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"

	"winter/internal/diag"
	"winter/internal/source"
)

// LocationJSON is a 1-based position; column counts bytes.
type LocationJSON struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Length int    `json:"length,omitempty"`
}

// FixJSON is a whole-line replacement.
type FixJSON struct {
	Description string `json:"description"`
	Replacement string `json:"replacement"`
	Line        int    `json:"line"`
	StartByte   int    `json:"start_byte"`
	EndByte     int    `json:"end_byte"`
	OldText     string `json:"old_text,omitempty"`
	Safety      string `json:"safety"`
}

// RelatedJSON is a secondary location.
type RelatedJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is the stable wire form of a diagnostic.
type DiagnosticJSON struct {
	RuleID   string        `json:"rule_id"`
	Severity string        `json:"severity"`
	Category string        `json:"category,omitempty"`
	Message  string        `json:"message"`
	Location LocationJSON  `json:"location"`
	Help     string        `json:"help,omitempty"`
	Fix      *FixJSON      `json:"fix,omitempty"`
	Related  []RelatedJSON `json:"related,omitempty"`
}

// SummaryJSON tallies the report.
type SummaryJSON struct {
	Files        int `json:"files"`
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`
	InfoCount    int `json:"info_count"`
	Total        int `json:"total"`
}

// DiagnosticsOutput is the root of a JSON report.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Summary     SummaryJSON      `json:"summary"`
}

func makeLocation(loc source.Location, opts JSONOpts) LocationJSON {
	return LocationJSON{
		File:   formatPath(loc.File, opts.PathMode, opts.BaseDir),
		Line:   loc.Line,
		Column: loc.Column,
		Length: loc.Length,
	}
}

// BuildDiagnosticsOutput builds the report without serializing it. The
// summary counts every diagnostic, including those cut by opts.Max.
func BuildDiagnosticsOutput(ds []diag.Diagnostic, files int, opts JSONOpts) DiagnosticsOutput {
	n := len(ds)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, 0, n)}
	for _, d := range ds[:n] {
		dj := DiagnosticJSON{
			RuleID:   d.RuleID,
			Severity: d.Severity.String(),
			Category: d.Category,
			Message:  d.Message,
			Location: makeLocation(d.Location, opts),
			Help:     d.Help,
		}
		if f := d.Fix; f != nil {
			dj.Fix = &FixJSON{
				Description: f.Description,
				Replacement: f.Replacement,
				Line:        f.Line,
				StartByte:   f.Start,
				EndByte:     f.End,
				OldText:     f.OldText,
				Safety:      f.Safety.String(),
			}
		}
		for _, r := range d.Related {
			dj.Related = append(dj.Related, RelatedJSON{Message: r.Message, Location: makeLocation(r.Location, opts)})
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	c := diag.Count(ds)
	out.Summary = SummaryJSON{
		Files:        files,
		ErrorCount:   c.Errors,
		WarningCount: c.Warnings,
		InfoCount:    c.Infos,
		Total:        c.Total(),
	}
	return out
}

// JSON writes {"diagnostics": [...], "summary": {...}} with two-space indent.
func JSON(w io.Writer, ds []diag.Diagnostic, files int, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(ds, files, opts))
}

// ReadJSON decodes a report written by JSON back into diagnostics.
func ReadJSON(r io.Reader) ([]diag.Diagnostic, error) {
	var out DiagnosticsOutput
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	ds := make([]diag.Diagnostic, 0, len(out.Diagnostics))
	for i, dj := range out.Diagnostics {
		sev, err := diag.ParseSeverity(dj.Severity)
		if err != nil {
			return nil, fmt.Errorf("diagnostic %d: %w", i, err)
		}
		d := diag.New(sev, dj.RuleID, dj.Location.source(), dj.Message)
		d.Category = dj.Category
		d.Help = dj.Help
		if fj := dj.Fix; fj != nil {
			safety, err := diag.ParseSafety(fj.Safety)
			if err != nil {
				return nil, fmt.Errorf("diagnostic %d: %w", i, err)
			}
			d.Fix = &diag.Fix{
				Description: fj.Description,
				Replacement: fj.Replacement,
				Line:        fj.Line,
				Start:       fj.StartByte,
				End:         fj.EndByte,
				OldText:     fj.OldText,
				Safety:      safety,
			}
		}
		for _, r := range dj.Related {
			d.Related = append(d.Related, diag.Related{Location: r.Location.source(), Message: r.Message})
		}
		ds = append(ds, d)
	}
	return ds, nil
}

func (l LocationJSON) source() source.Location {
	return source.Location{File: l.File, Line: l.Line, Column: l.Column, Length: l.Length}
}
