package fix

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"winter/internal/diag"
	"winter/internal/source"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func lineFix(t *testing.T, fs *source.FileSet, path, rule string, line int, text string, safety diag.Safety) diag.Diagnostic {
	t.Helper()
	f, ok := fs.GetByPath(path)
	if !ok {
		id, err := fs.Load(path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		f = fs.Get(id)
	}
	fx := ReplaceLine(f, line, text, WithSafety(safety), WithDescription(rule+" fix"))
	if fx == nil {
		t.Fatalf("no fix for line %d", line)
	}
	d := diag.New(diag.SevWarning, rule, source.Location{File: path, Line: line, Column: 1}, rule)
	d.Fix = fx
	return d
}

func TestApplyAll(t *testing.T) {
	path := writeTemp(t, "a.wxs", "<Wix>\n  <Component Id=\"C\">\n  <Package Name=\"P\">\n</Wix>\n")
	fs := source.NewFileSet()
	ds := []diag.Diagnostic{
		lineFix(t, fs, path, "package-requires-version", 3, `  <Package Name="P" Version="1.0.0.0">`, diag.SafetySafe),
		lineFix(t, fs, path, "component-requires-guid", 2, `  <Component Id="C" Guid="*">`, diag.SafetySafe),
	}

	res, err := Apply(fs, ds, ApplyOptions{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Applied) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("applied=%d skipped=%v", len(res.Applied), res.Skipped)
	}
	// порядок по строкам
	if res.Applied[0].Line != 2 || res.Applied[1].Line != 3 {
		t.Fatalf("unexpected order: %+v", res.Applied)
	}
	if len(res.FileChanges) != 1 || res.FileChanges[0].EditCount() != 2 {
		t.Fatalf("unexpected changes: %+v", res.FileChanges)
	}

	got, _ := os.ReadFile(path)
	want := "<Wix>\n  <Component Id=\"C\" Guid=\"*\">\n  <Package Name=\"P\" Version=\"1.0.0.0\">\n</Wix>\n"
	if string(got) != want {
		t.Fatalf("content mismatch:\n%s", got)
	}
}

func TestApplySafety(t *testing.T) {
	path := writeTemp(t, "a.wxs", "<Wix>\n  <File Source=\"C:\\x.exe\"/>\n  <Package/>\n</Wix>")
	fs := source.NewFileSet()
	ds := []diag.Diagnostic{
		lineFix(t, fs, path, "file-hardcoded-path", 2, `  <File Source="$(var.Dir)\x.exe"/>`, diag.SafetyDisplay),
		lineFix(t, fs, path, "package-requires-upgradecode", 3, `  <Package UpgradeCode="PUT-GUID-HERE"/>`, diag.SafetyUnsafe),
	}

	res, err := Apply(fs, ds, ApplyOptions{DryRun: true})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skips, got %+v", res.Skipped)
	}
	reasons := res.Skipped[0].Reason + "|" + res.Skipped[1].Reason
	if !strings.Contains(reasons, "display-only") || !strings.Contains(reasons, "--unsafe") {
		t.Fatalf("unexpected reasons %q", reasons)
	}

	res, err = Apply(fs, ds, ApplyOptions{AllowUnsafe: true})
	if err != nil {
		t.Fatalf("apply unsafe: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0].Safety != diag.SafetyUnsafe {
		t.Fatalf("unexpected applied %+v", res.Applied)
	}
	got, _ := os.ReadFile(path)
	if !strings.Contains(string(got), `UpgradeCode="PUT-GUID-HERE"`) || !strings.Contains(string(got), `C:\x.exe`) {
		t.Fatalf("unexpected content:\n%s", got)
	}
}

func TestApplyConflictAndStale(t *testing.T) {
	path := writeTemp(t, "a.wxs", "<Wix>\n  <Component Id=\"C\">\n</Wix>\n")
	fs := source.NewFileSet()
	first := lineFix(t, fs, path, "a-rule", 2, `  <Component Id="C" Guid="*">`, diag.SafetySafe)
	second := lineFix(t, fs, path, "b-rule", 2, `  <Component Id="C" Shared="no">`, diag.SafetySafe)
	stale := lineFix(t, fs, path, "c-rule", 3, `</Wix> `, diag.SafetySafe)
	stale.Fix.OldText = "</Package>"

	res, err := Apply(fs, []diag.Diagnostic{second, first, stale}, ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Applied) != 1 || res.Applied[0].RuleID != "a-rule" {
		t.Fatalf("expected a-rule to win, got %+v", res.Applied)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skips, got %+v", res.Skipped)
	}
	if res.Skipped[0].Reason != "conflicts with another fix on the same line" {
		t.Fatalf("unexpected reason %q", res.Skipped[0].Reason)
	}
	if res.Skipped[1].Reason != "source changed since analysis" {
		t.Fatalf("unexpected reason %q", res.Skipped[1].Reason)
	}

	// dry run ничего не пишет
	got, _ := os.ReadFile(path)
	if strings.Contains(string(got), "Guid") {
		t.Fatalf("dry run modified the file")
	}
	diff := res.FileChanges[0].Diff()
	if !strings.Contains(diff, "-  <Component Id=\"C\">\n+  <Component Id=\"C\" Guid=\"*\">") {
		t.Fatalf("unexpected diff:\n%s", diff)
	}
}

func TestApplyModes(t *testing.T) {
	path := writeTemp(t, "a.wxs", "<Wix>\n  <A/>\n  <B/>\n</Wix>")
	fs := source.NewFileSet()
	ds := []diag.Diagnostic{
		lineFix(t, fs, path, "rule-b", 3, "  <B x=\"1\"/>", diag.SafetySafe),
		lineFix(t, fs, path, "rule-a", 2, "  <A x=\"1\"/>", diag.SafetySafe),
	}

	res, err := Apply(fs, ds, ApplyOptions{Mode: ApplyModeOnce, DryRun: true})
	if err != nil || len(res.Applied) != 1 || res.Applied[0].RuleID != "rule-a" {
		t.Fatalf("once: %v %+v", err, res.Applied)
	}

	res, err = Apply(fs, ds, ApplyOptions{Mode: ApplyModeRule, RuleID: "rule-b", DryRun: true})
	if err != nil || len(res.Applied) != 1 || res.Applied[0].Line != 3 {
		t.Fatalf("rule: %v %+v", err, res.Applied)
	}

	res, err = Apply(fs, ds, ApplyOptions{Mode: ApplyModeRule, RuleID: "missing"})
	if !errors.Is(err, ErrNoFixes) || len(res.Skipped) != 1 {
		t.Fatalf("missing rule: %v %+v", err, res.Skipped)
	}
}

func TestApplyPreservesLineEndingsAndMode(t *testing.T) {
	path := writeTemp(t, "a.wxs", "\xEF\xBB\xBF<Wix>\r\n  <A/>\r\n</Wix>\r\n")
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	fs := source.NewFileSet()
	ds := []diag.Diagnostic{lineFix(t, fs, path, "r", 2, "  <A b=\"c\"/>", diag.SafetySafe)}

	if _, err := Apply(fs, ds, ApplyOptions{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "\xEF\xBB\xBF<Wix>\r\n  <A b=\"c\"/>\r\n</Wix>\r\n" {
		t.Fatalf("line endings lost: %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode changed to %v", info.Mode().Perm())
	}
}

func TestApplyVirtualAndMissing(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("buffer.wxs", []byte("<Wix>\n<A/>\n</Wix>"))
	f := fs.Get(id)
	d := diag.New(diag.SevWarning, "r", source.Location{File: f.Path, Line: 2, Column: 1}, "m")
	d.Fix = ReplaceLine(f, 2, "<A b=\"c\"/>")

	missing := diag.New(diag.SevWarning, "r", source.Location{File: filepath.Join(t.TempDir(), "gone.wxs"), Line: 1}, "m")
	missing.Fix = &diag.Fix{Line: 1, Replacement: "x", OldText: "y"}

	res, err := Apply(fs, []diag.Diagnostic{d, missing}, ApplyOptions{})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skips, got %+v", res.Skipped)
	}
	if _, err := Apply(nil, nil, ApplyOptions{}); err == nil {
		t.Fatalf("expected error for nil FileSet")
	}
}
