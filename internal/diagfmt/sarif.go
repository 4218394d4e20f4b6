package diagfmt

import (
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"winter/internal/diag"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifRule struct {
	ID                   string              `json:"id"`
	Name                 string              `json:"name,omitempty"`
	ShortDescription     *sarifMessage       `json:"shortDescription,omitempty"`
	FullDescription      *sarifMessage       `json:"fullDescription,omitempty"`
	HelpURI              string              `json:"helpUri,omitempty"`
	DefaultConfiguration *sarifConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           map[string]any      `json:"properties,omitempty"`
}

type sarifConfiguration struct {
	Level string `json:"level"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifResult struct {
	RuleID           string            `json:"ruleId"`
	RuleIndex        int               `json:"ruleIndex"`
	Level            string            `json:"level"`
	Message          sarifMessage      `json:"message"`
	Locations        []sarifLocation   `json:"locations"`
	RelatedLocations []sarifLocation   `json:"relatedLocations,omitempty"`
	Fixes            []sarifFix        `json:"fixes,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
}

type sarifLocation struct {
	ID               int                   `json:"id,omitempty"`
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          *sarifMessage         `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

type sarifFix struct {
	Description     sarifMessage          `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Replacements     []sarifReplacement    `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion  `json:"deletedRegion"`
	InsertedContent sarifMessage `json:"insertedContent"`
}

// SarifLevel maps a severity to a SARIF result level.
func SarifLevel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	}
	return "note"
}

// artifactURI keeps relative paths relative and turns absolute ones into file URIs.
func artifactURI(p string) string {
	slashed := filepath.ToSlash(p)
	if !filepath.IsAbs(p) && !strings.HasPrefix(slashed, "/") {
		return (&url.URL{Path: slashed}).EscapedPath()
	}
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed // C:/x -> /C:/x
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String()
}

func sarifRegionFor(line, col, length int) sarifRegion {
	r := sarifRegion{StartLine: max(line, 1)}
	if col > 0 {
		r.StartColumn = col
		if length > 0 {
			r.EndLine = r.StartLine
			r.EndColumn = col + length
		}
	}
	return r
}

// Sarif writes a SARIF 2.1.0 log with a single run. The rule table holds
// every rule a result refers to, de-duplicated and sorted by id; metadata
// comes from rules when available. Display-only fixes are not emitted.
func Sarif(w io.Writer, ds []diag.Diagnostic, rules []diag.RuleMeta, meta SarifRunMeta) error {
	known := make(map[string]diag.RuleMeta, len(rules))
	for _, r := range rules {
		known[r.ID] = r
	}
	var ids []string
	seen := make(map[string]bool)
	for _, d := range ds {
		if !seen[d.RuleID] {
			seen[d.RuleID] = true
			ids = append(ids, d.RuleID)
		}
	}
	sort.Strings(ids)

	index := make(map[string]int, len(ids))
	table := make([]sarifRule, 0, len(ids))
	for i, id := range ids {
		index[id] = i
		sr := sarifRule{ID: id}
		if m, ok := known[id]; ok {
			sr.Name = m.Title
			if m.Title != "" {
				sr.ShortDescription = &sarifMessage{Text: m.Title}
			}
			if m.Description != "" {
				sr.FullDescription = &sarifMessage{Text: m.Description}
			}
			sr.HelpURI = m.HelpURI
			sr.DefaultConfiguration = &sarifConfiguration{Level: SarifLevel(m.Severity)}
			if m.Category != "" {
				sr.Properties = map[string]any{"category": m.Category}
			}
		}
		table = append(table, sr)
	}

	results := make([]sarifResult, 0, len(ds))
	for _, d := range ds {
		uri := artifactURI(d.Location.File)
		res := sarifResult{
			RuleID:    d.RuleID,
			RuleIndex: index[d.RuleID],
			Level:     SarifLevel(d.Severity),
			Message:   sarifMessage{Text: d.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region:           sarifRegionFor(d.Location.Line, d.Location.Column, d.Location.Length),
				},
			}},
		}
		for i, r := range d.Related {
			res.RelatedLocations = append(res.RelatedLocations, sarifLocation{
				ID: i + 1,
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: artifactURI(r.Location.File)},
					Region:           sarifRegionFor(r.Location.Line, r.Location.Column, r.Location.Length),
				},
				Message: &sarifMessage{Text: r.Message},
			})
		}
		if f := d.Fix; f != nil && f.Safety != diag.SafetyDisplay {
			res.Fixes = []sarifFix{{
				Description: sarifMessage{Text: f.Description},
				ArtifactChanges: []sarifArtifactChange{{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Replacements: []sarifReplacement{{
						DeletedRegion: sarifRegion{
							StartLine:   f.Line,
							StartColumn: 1,
							EndLine:     f.Line,
							EndColumn:   f.End - f.Start + 1,
						},
						InsertedContent: sarifMessage{Text: f.Replacement},
					}},
				}},
			}}
			res.Properties = map[string]string{"fixSafety": f.Safety.String()}
		}
		if d.Category != "" {
			if res.Properties == nil {
				res.Properties = make(map[string]string, 1)
			}
			res.Properties["category"] = d.Category
		}
		results = append(results, res)
	}

	name := meta.ToolName
	if name == "" {
		name = "winter"
	}
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           name,
			Version:        meta.ToolVersion,
			InformationURI: meta.InformationURI,
			Rules:          table,
		}},
		Results: results,
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: true}}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: sarifVersion, Runs: []sarifRun{run}})
}
