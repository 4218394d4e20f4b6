package diagfmt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"winter/internal/diag"
)

// GitLabIssue is one entry of a GitLab Code Quality report.
type GitLabIssue struct {
	Description string         `json:"description"`
	CheckName   string         `json:"check_name"`
	Fingerprint string         `json:"fingerprint"`
	Severity    string         `json:"severity"`
	Location    GitLabLocation `json:"location"`
}

type GitLabLocation struct {
	Path  string      `json:"path"`
	Lines GitLabLines `json:"lines"`
}

type GitLabLines struct {
	Begin int `json:"begin"`
}

func gitlabSeverity(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "critical"
	case diag.SevWarning:
		return "major"
	}
	return "minor"
}

// GitLab writes a Code Quality report: a JSON array of issues. The
// fingerprint depends on rule, path, line and message only, so it is stable
// across runs.
func GitLab(w io.Writer, ds []diag.Diagnostic, opts GitLabOpts) error {
	issues := make([]GitLabIssue, 0, len(ds))
	for _, d := range ds {
		path := formatPath(d.Location.File, opts.PathMode, opts.BaseDir)
		sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%d\x00%s", d.RuleID, path, d.Location.Line, d.Message))
		issues = append(issues, GitLabIssue{
			Description: d.Message,
			CheckName:   d.RuleID,
			Fingerprint: hex.EncodeToString(sum[:16]),
			Severity:    gitlabSeverity(d.Severity),
			Location: GitLabLocation{
				Path:  path,
				Lines: GitLabLines{Begin: d.Location.Line},
			},
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(issues)
}
