package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"winter/internal/diag"
)

// Format names an output encoder.
type Format string

const (
	FormatCompact Format = "compact"
	FormatPretty  Format = "pretty"
	FormatJSON    Format = "json"
	FormatSarif   Format = "sarif"
	FormatGitHub  Format = "github"
	FormatJUnit   Format = "junit"
	FormatGitLab  Format = "gitlab"
)

// Formats lists every supported format.
var Formats = []Format{FormatPretty, FormatCompact, FormatJSON, FormatSarif, FormatGitHub, FormatJUnit, FormatGitLab}

// ParseFormat accepts the format names plus the aliases "text", "gha" and
// "codeclimate".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "text":
		return FormatPretty, nil
	case "gha", "github-actions":
		return FormatGitHub, nil
	case "codeclimate", "code-quality":
		return FormatGitLab, nil
	case FormatCompact, FormatPretty, FormatJSON, FormatSarif, FormatGitHub, FormatJUnit, FormatGitLab:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want pretty, compact, json, sarif, github, junit or gitlab)", s)
}

// Report is everything an encoder may need.
type Report struct {
	Diagnostics []diag.Diagnostic
	Files       int
	Rules       []diag.RuleMeta
	Sources     Sources
	Tool        SarifRunMeta
}

// WriteOpts carries the per-format options.
type WriteOpts struct {
	Pretty  PrettyOpts
	JSON    JSONOpts
	GitHub  GitHubOpts
	JUnit   JUnitOpts
	GitLab  GitLabOpts
	Summary bool // pretty and compact: append a tally line
}

// Write encodes r in format f.
func Write(w io.Writer, f Format, r Report, opts WriteOpts) error {
	var err error
	switch f {
	case FormatCompact:
		err = Compact(w, r.Diagnostics, opts.Pretty.PathMode, opts.Pretty.BaseDir)
		if err == nil && opts.Summary {
			err = PrettySummary(w, diag.Count(r.Diagnostics), r.Files, false)
		}
	case FormatPretty:
		err = Pretty(w, r.Diagnostics, r.Sources, opts.Pretty)
		if err == nil && opts.Summary {
			if len(r.Diagnostics) > 0 {
				_, err = io.WriteString(w, "\n")
			}
			if err == nil {
				err = PrettySummary(w, diag.Count(r.Diagnostics), r.Files, opts.Pretty.Color)
			}
		}
	case FormatJSON:
		err = JSON(w, r.Diagnostics, r.Files, opts.JSON)
	case FormatSarif:
		err = Sarif(w, r.Diagnostics, r.Rules, r.Tool)
	case FormatGitHub:
		err = GitHub(w, r.Diagnostics, r.Files, opts.GitHub)
	case FormatJUnit:
		err = JUnit(w, r.Diagnostics, opts.JUnit)
	case FormatGitLab:
		err = GitLab(w, r.Diagnostics, opts.GitLab)
	default:
		err = fmt.Errorf("unknown format %q", f)
	}
	return err
}
