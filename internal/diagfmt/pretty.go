package diagfmt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"winter/internal/diag"
)

type palette struct {
	err, warn, info *color.Color
	bold, dim, help *color.Color
	add, del        *color.Color
}

func newPalette(on bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan, color.Bold),
		bold: color.New(color.Bold),
		dim:  color.New(color.FgBlue),
		help: color.New(color.FgGreen),
		add:  color.New(color.FgGreen),
		del:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.bold, p.dim, p.help, p.add, p.del} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty writes human-readable diagnostics (expected already sorted):
//
//	<path>:<line>:<col>: <SEV> <rule>: <message>
//	   12 | <source line>
//	      |     ^~~~~
//
// followed by help, fix preview and related locations when enabled. src may
// be nil, in which case source lines are omitted.
func Pretty(w io.Writer, ds []diag.Diagnostic, src Sources, opts PrettyOpts) error {
	bw := bufio.NewWriter(w)
	pal := newPalette(opts.Color)
	tab := opts.TabWidth
	if tab <= 0 {
		tab = 4
	}

	for i, d := range ds {
		if i > 0 {
			bw.WriteString("\n")
		}
		loc := d.Location
		path := formatPath(loc.File, opts.PathMode, opts.BaseDir)
		fmt.Fprintf(bw, "%s %s %s: %s\n",
			pal.bold.Sprintf("%s:%d:%d:", path, loc.Line, loc.Column),
			pal.severity(d.Severity).Sprint(strings.ToUpper(d.Severity.String())),
			pal.bold.Sprint(d.RuleID),
			d.Message)

		gutter := len(strconv.Itoa(loc.Line)) + 3
		if src != nil && loc.Line > 0 {
			if line, ok := src.Line(loc.File, loc.Line); ok {
				writeSnippet(bw, pal, line, loc.Line, loc.Column, loc.Length, gutter, tab, pal.severity(d.Severity))
			}
		}
		pad := strings.Repeat(" ", gutter)
		if opts.ShowHelp && d.Help != "" {
			fmt.Fprintf(bw, "%s%s %s\n", pad, pal.dim.Sprint("="), pal.help.Sprint("help: "+d.Help))
		}
		if opts.ShowFixes && d.Fix != nil {
			writeFix(bw, pal, d.Fix, pad, tab)
		}
		if opts.ShowRelated {
			for _, r := range d.Related {
				fmt.Fprintf(bw, "%s%s note: %s:%d:%d: %s\n", pad, pal.dim.Sprint("="),
					formatPath(r.Location.File, opts.PathMode, opts.BaseDir), r.Location.Line, r.Location.Column, r.Message)
			}
		}
	}
	return bw.Flush()
}

func writeSnippet(w *bufio.Writer, pal palette, line string, lineNo, col, length, gutter, tab int, mark *color.Color) {
	num := strconv.Itoa(lineNo)
	fmt.Fprintf(w, "%s%s %s %s\n", strings.Repeat(" ", gutter-len(num)-1), pal.dim.Sprint(num), pal.dim.Sprint("|"), expandTabs(line, tab))

	start := min(max(col-1, 0), len(line))
	end := len(line)
	if length > 0 {
		end = min(start+length, len(line))
	}
	lead := runewidth.StringWidth(expandTabs(line[:start], tab))
	width := max(runewidth.StringWidth(expandTabs(line[start:end], tab)), 1)
	under := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s%s %s%s\n", strings.Repeat(" ", gutter), pal.dim.Sprint("|"), strings.Repeat(" ", lead), mark.Sprint(under))
}

func writeFix(w *bufio.Writer, pal palette, f *diag.Fix, pad string, tab int) {
	title := f.Description
	if title == "" {
		title = "suggested edit"
	}
	fmt.Fprintf(w, "%s%s %s\n", pad, pal.dim.Sprint("="), pal.help.Sprintf("fix (%s): %s", f.Safety, title))
	before, after := fixPreview(f)
	for _, l := range before {
		fmt.Fprintf(w, "%s%s\n", pad, pal.del.Sprint("- "+expandTabs(l, tab)))
	}
	for _, l := range after {
		fmt.Fprintf(w, "%s%s\n", pad, pal.add.Sprint("+ "+expandTabs(l, tab)))
	}
}

func expandTabs(s string, tab int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tab))
}

// PrettySummary writes a one-line tally, e.g. "3 problems (1 error, 2 warnings, 0 infos) in 2 files".
func PrettySummary(w io.Writer, c diag.Counts, files int, colored bool) error {
	pal := newPalette(colored)
	if c.Total() == 0 {
		_, err := fmt.Fprintf(w, "%s\n", pal.help.Sprintf("no problems found in %s", plural(files, "file")))
		return err
	}
	sev := pal.info
	switch {
	case c.Errors > 0:
		sev = pal.err
	case c.Warnings > 0:
		sev = pal.warn
	}
	_, err := fmt.Fprintf(w, "%s (%s, %s, %s) in %s\n",
		sev.Sprint(plural(c.Total(), "problem")),
		plural(c.Errors, "error"), plural(c.Warnings, "warning"), plural(c.Infos, "info"),
		plural(files, "file"))
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
