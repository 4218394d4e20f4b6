package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"winter/internal/diag"
)

type sarifTriple struct {
	rule  string
	level string
	uri   string
	line  int
	col   int
}

func decodeSarif(t *testing.T, data []byte) sarifLog {
	t.Helper()
	var log sarifLog
	if err := json.Unmarshal(data, &log); err != nil {
		t.Fatalf("invalid sarif: %v", err)
	}
	return log
}

func TestSarifStructure(t *testing.T) {
	rules := []diag.RuleMeta{
		{ID: "duplicate-id", Title: "Duplicate identifier", Severity: diag.SevError, Category: "correctness"},
		{ID: "unused-rule", Title: "Never reported"},
	}
	var buf bytes.Buffer
	err := Sarif(&buf, reportFixture(), rules, SarifRunMeta{ToolVersion: "1.2.3", InformationURI: "https://example.invalid/winter"})
	if err != nil {
		t.Fatal(err)
	}
	log := decodeSarif(t, buf.Bytes())

	if log.Version != "2.1.0" || log.Schema == "" {
		t.Errorf("header = %q %q", log.Schema, log.Version)
	}
	if len(log.Runs) != 1 {
		t.Fatalf("runs = %d", len(log.Runs))
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "winter" || run.Tool.Driver.Version != "1.2.3" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}

	var ids []string
	for _, r := range run.Tool.Driver.Rules {
		ids = append(ids, r.ID)
	}
	want := []string{"component-requires-guid", "duplicate-id", "file-hardcoded-path"}
	if len(ids) != len(want) {
		t.Fatalf("rules = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("rules[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
	if run.Tool.Driver.Rules[1].ShortDescription == nil || run.Tool.Driver.Rules[1].DefaultConfiguration.Level != "error" {
		t.Errorf("rule metadata not carried: %+v", run.Tool.Driver.Rules[1])
	}

	for _, res := range run.Results {
		if run.Tool.Driver.Rules[res.RuleIndex].ID != res.RuleID {
			t.Errorf("ruleIndex %d does not point at %s", res.RuleIndex, res.RuleID)
		}
	}

	first := run.Results[0]
	if first.Level != "warning" || first.Locations[0].PhysicalLocation.Region.EndColumn != 25 {
		t.Errorf("first result = %+v", first)
	}
	if len(first.Fixes) != 1 {
		t.Fatalf("expected one fix, got %d", len(first.Fixes))
	}
	repl := first.Fixes[0].ArtifactChanges[0].Replacements[0]
	if repl.DeletedRegion.StartLine != 4 || repl.DeletedRegion.EndColumn != 20 || repl.InsertedContent.Text != `    <Component Id="c" Guid="*">` {
		t.Errorf("replacement = %+v", repl)
	}
	if len(run.Results[1].RelatedLocations) != 1 {
		t.Errorf("related locations lost")
	}
	// display-only исправления не публикуются
	if len(run.Results[2].Fixes) != 0 || run.Results[2].Level != "note" {
		t.Errorf("display fix result = %+v", run.Results[2])
	}
}

func TestJSONToSarifPreservesTriples(t *testing.T) {
	orig := reportFixture()
	var js bytes.Buffer
	if err := JSON(&js, orig, 1, JSONOpts{PathMode: PathModeAsIs}); err != nil {
		t.Fatal(err)
	}
	back, err := ReadJSON(&js)
	if err != nil {
		t.Fatal(err)
	}
	var sf bytes.Buffer
	if err := Sarif(&sf, back, nil, SarifRunMeta{}); err != nil {
		t.Fatal(err)
	}
	log := decodeSarif(t, sf.Bytes())

	results := log.Runs[0].Results
	if len(results) != len(orig) {
		t.Fatalf("results = %d, want %d", len(results), len(orig))
	}
	for i, d := range orig {
		loc := results[i].Locations[0].PhysicalLocation
		got := sarifTriple{results[i].RuleID, results[i].Level, loc.ArtifactLocation.URI, loc.Region.StartLine, loc.Region.StartColumn}
		want := sarifTriple{d.RuleID, SarifLevel(d.Severity), d.Location.File, d.Location.Line, d.Location.Column}
		if got != want {
			t.Errorf("result %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestArtifactURI(t *testing.T) {
	cases := map[string]string{
		"src/Product.wxs":      "src/Product.wxs",
		"/abs/My Product.wxs":  "file:///abs/My%20Product.wxs",
		"dir with space/a.wxs": "dir%20with%20space/a.wxs",
	}
	for in, want := range cases {
		if got := artifactURI(in); got != want {
			t.Errorf("artifactURI(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSarifEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Sarif(&buf, nil, nil, SarifRunMeta{}); err != nil {
		t.Fatal(err)
	}
	log := decodeSarif(t, buf.Bytes())
	if log.Runs[0].Results == nil || len(log.Runs[0].Results) != 0 {
		t.Errorf("results should be an empty array")
	}
}
