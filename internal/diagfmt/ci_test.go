package diagfmt

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"winter/internal/diag"
	"winter/internal/source"
)

func fixtureReport() Report {
	fs := source.NewFileSet()
	var src strings.Builder
	for i := 1; i <= 12; i++ {
		src.WriteString("    <Component Id=\"c\">\n")
	}
	fs.AddVirtual("src/Product.wxs", []byte(src.String()))
	return Report{
		Diagnostics: reportFixture(),
		Files:       1,
		Rules: []diag.RuleMeta{
			{ID: "component-requires-guid", Title: "Component should declare a Guid", Severity: diag.SevWarning},
			{ID: "duplicate-id", Title: "Duplicate id", Severity: diag.SevError},
			{ID: "file-hardcoded-path", Title: "Hardcoded path", Severity: diag.SevInfo},
		},
		Sources: NewFileSetSources(fs),
		Tool:    SarifRunMeta{ToolName: "winter", ToolVersion: "test", InvocationArgs: []string{"winter", "check"}},
	}
}

// Every adapter must produce identical bytes for identical input.
func TestWriteIdempotent(t *testing.T) {
	opts := WriteOpts{
		Pretty:  PrettyOpts{PathMode: PathModeAsIs, ShowHelp: true, ShowFixes: true, ShowRelated: true},
		JSON:    JSONOpts{PathMode: PathModeAsIs},
		GitHub:  GitHubOpts{PathMode: PathModeAsIs, Group: true},
		JUnit:   JUnitOpts{PathMode: PathModeAsIs},
		GitLab:  GitLabOpts{PathMode: PathModeAsIs},
		Summary: true,
	}
	if len(Formats) != 7 {
		t.Fatalf("Formats = %v, extend this test", Formats)
	}
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			var a, b bytes.Buffer
			if err := Write(&a, f, fixtureReport(), opts); err != nil {
				t.Fatal(err)
			}
			if err := Write(&b, f, fixtureReport(), opts); err != nil {
				t.Fatal(err)
			}
			if a.Len() == 0 {
				t.Fatal("empty output")
			}
			if !bytes.Equal(a.Bytes(), b.Bytes()) {
				t.Errorf("two encodes differ:\n%s\n---\n%s", a.String(), b.String())
			}
		})
	}
}

func TestJUnitShape(t *testing.T) {
	ds := append(reportFixture(), diag.New(diag.SevWarning, "r<&>", source.Location{File: "b.wxs", Line: 1, Column: 2}, `say "hi" & <bye>`))
	var buf bytes.Buffer
	if err := JUnit(&buf, ds, JUnitOpts{PathMode: PathModeAsIs}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing header:\n%s", buf.String())
	}

	var got junitSuites
	if err := xml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid xml: %v\n%s", err, buf.String())
	}
	if got.Name != "winter" || got.Tests != 4 || got.Failures != 4 {
		t.Errorf("root = %+v", got)
	}
	if len(got.Suites) != 2 || got.Suites[0].Name != "src/Product.wxs" || got.Suites[0].Tests != 3 || got.Suites[1].Name != "b.wxs" {
		t.Fatalf("suites = %+v", got.Suites)
	}
	c := got.Suites[0].Cases[1]
	if c.Name != "src/Product.wxs:9:3 duplicate-id" || c.Classname != "src/Product.wxs" {
		t.Errorf("case = %+v", c)
	}
	if c.Failure.Type != "error" || c.Failure.Message != "duplicate Component id 'c'" {
		t.Errorf("failure = %+v", c.Failure)
	}
	// экранирование переживает разбор
	esc := got.Suites[1].Cases[0]
	if esc.Failure.Message != `say "hi" & <bye>` || !strings.Contains(esc.Name, "r<&>") {
		t.Errorf("escaped case = %+v", esc)
	}
}

func TestJUnitEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := JUnit(&buf, nil, JUnitOpts{SuiteName: "wix"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `<testsuites name="wix" tests="0" failures="0"></testsuites>`) {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestGitLabShape(t *testing.T) {
	var buf bytes.Buffer
	if err := GitLab(&buf, reportFixture(), GitLabOpts{PathMode: PathModeAsIs}); err != nil {
		t.Fatal(err)
	}
	var issues []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &issues); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("len = %d", len(issues))
	}
	first := issues[0]
	if first["check_name"] != "component-requires-guid" || first["severity"] != "major" || first["description"] != "Component 'c' has no Guid" {
		t.Errorf("issue = %v", first)
	}
	loc := first["location"].(map[string]any)
	if loc["path"] != "src/Product.wxs" || loc["lines"].(map[string]any)["begin"] != float64(4) {
		t.Errorf("location = %v", loc)
	}
	if issues[1]["severity"] != "critical" || issues[2]["severity"] != "minor" {
		t.Errorf("severities = %v, %v", issues[1]["severity"], issues[2]["severity"])
	}

	seen := map[any]bool{}
	for _, is := range issues {
		fp := is["fingerprint"]
		if s, _ := fp.(string); len(s) != 32 || seen[fp] {
			t.Errorf("bad or repeated fingerprint %v", fp)
		}
		seen[fp] = true
	}
}

func TestGitLabEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	if err := GitLab(&buf, nil, GitLabOpts{}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("got %q", buf.String())
	}
}
