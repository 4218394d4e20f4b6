// Package diagfmt renders diagnostics: compact lines, colored pretty output,
// JSON reports, SARIF 2.1.0 logs, CI workflow annotations, JUnit test
// reports and GitLab Code Quality reports.
package diagfmt

import (
	"fmt"
	"strings"

	"winter/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths and shortens long absolute ones.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
	PathModeAsIs
)

// ParsePathMode accepts auto, absolute, relative, basename and as-is.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return PathModeAuto, nil
	case "absolute", "abs":
		return PathModeAbsolute, nil
	case "relative", "rel":
		return PathModeRelative, nil
	case "basename", "base":
		return PathModeBasename, nil
	case "as-is", "raw":
		return PathModeAsIs, nil
	}
	return PathModeAuto, fmt.Errorf("unknown path mode %q", s)
}

func (m PathMode) mode() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	case PathModeAuto:
		return "auto"
	}
	return ""
}

// formatPath renders p under mode; baseDir anchors relative paths (cwd if empty).
func formatPath(p string, mode PathMode, baseDir string) string {
	if p == "" {
		return p
	}
	f := source.File{Path: p}
	return f.FormatPath(mode.mode(), baseDir)
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string
	ShowHelp  bool
	ShowFixes bool
	// ShowRelated prints secondary locations under the primary one.
	ShowRelated bool
	TabWidth    int // 0 = 4
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode PathMode
	BaseDir  string
	Max      int // обрезка вывода
}

// SarifRunMeta provides tool metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InformationURI string
	InvocationArgs []string
}

// GitHubOpts configures CI annotations.
type GitHubOpts struct {
	PathMode PathMode
	BaseDir  string
	// Group appends a collapsible summary block.
	Group bool
}

// JUnitOpts configures JUnit XML reports.
type JUnitOpts struct {
	PathMode  PathMode
	BaseDir   string
	SuiteName string // "winter" when empty
}

// GitLabOpts configures Code Quality reports. GitLab expects paths
// relative to the repository root.
type GitLabOpts struct {
	PathMode PathMode
	BaseDir  string
}
