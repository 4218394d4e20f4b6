package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"winter/internal/diag"
	"winter/internal/source"
)

func sampleDiag(file string, line, col, length int) diag.Diagnostic {
	d := diag.NewError("invalid-reference", source.Location{File: file, Line: line, Column: col, Length: length},
		"ComponentRef references undefined Component 'X'")
	d.Category = "correctness"
	return d
}

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	ds := []diag.Diagnostic{sampleDiag("/home/user/project/src/Product.wxs", 1, 1, 0)}

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/Product.wxs"},
		{"Relative path", PathModeRelative, "src/Product.wxs:1:1:"},
		{"Basename only", PathModeBasename, "Product.wxs:1:1:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			opts := PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"}
			if err := Pretty(&buf, ds, nil, opts); err != nil {
				t.Fatal(err)
			}
			output := buf.String()
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			// основные элементы заголовка
			for _, want := range []string{"ERROR", "invalid-reference", "undefined Component 'X'"} {
				if !strings.Contains(output, want) {
					t.Errorf("missing %q in:\n%s", want, output)
				}
			}
		})
	}
}

func TestPrettySnippet(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("a.wxs", []byte("<Root>\n\t<Ref Id=\"X\"/>\n</Root>"))

	var buf bytes.Buffer
	ds := []diag.Diagnostic{sampleDiag("a.wxs", 2, 2, 13)}
	if err := Pretty(&buf, ds, NewFileSetSources(fs), PrettyOpts{PathMode: PathModeAsIs}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("short output:\n%s", buf.String())
	}
	if want := "  2 |     <Ref Id=\"X\"/>"; lines[1] != want {
		t.Errorf("source line = %q, want %q", lines[1], want)
	}
	if want := "    |     ^" + strings.Repeat("~", 12); lines[2] != want {
		t.Errorf("caret line = %q, want %q", lines[2], want)
	}
}

func TestPrettyWideCharacters(t *testing.T) {
	fs := source.NewFileSet()
	// 日本 занимает 6 байт, но 4 колонки на экране
	fs.AddVirtual("w.wxs", []byte("<!-- 日本 --><A/>"))

	var buf bytes.Buffer
	ds := []diag.Diagnostic{sampleDiag("w.wxs", 1, 16, 4)}
	if err := Pretty(&buf, ds, NewFileSetSources(fs), PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	if want := "    | " + strings.Repeat(" ", 13) + "^~~~"; lines[2] != want {
		t.Errorf("caret line = %q, want %q", lines[2], want)
	}
}

func TestPrettyMissingSource(t *testing.T) {
	var buf bytes.Buffer
	ds := []diag.Diagnostic{sampleDiag("does/not/exist.wxs", 3, 1, 2)}
	if err := Pretty(&buf, ds, NewFileSetSources(nil), PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "|") {
		t.Errorf("expected no snippet for unreadable file:\n%s", buf.String())
	}
}

func TestPrettyHelpFixRelated(t *testing.T) {
	d := diag.New(diag.SevWarning, "component-requires-guid", source.Location{File: "a.wxs", Line: 2, Column: 3}, "Component has no Guid").
		WithHelp("add Guid=\"*\"").
		WithFix(diag.Fix{
			Description: "Add Guid",
			Line:        2,
			OldText:     `  <Component Id="c">`,
			Replacement: `  <Component Id="c" Guid="*">`,
			Safety:      diag.SafetySafe,
		}).
		WithRelated(source.Location{File: "b.wxs", Line: 7, Column: 5}, "first defined here")

	var buf bytes.Buffer
	opts := PrettyOpts{PathMode: PathModeAsIs, ShowHelp: true, ShowFixes: true, ShowRelated: true}
	if err := Pretty(&buf, []diag.Diagnostic{d}, nil, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"WARNING component-requires-guid",
		`= help: add Guid="*"`,
		"= fix (safe): Add Guid",
		`-   <Component Id="c">`,
		`+   <Component Id="c" Guid="*">`,
		"= note: b.wxs:7:5: first defined here",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPrettyColor(t *testing.T) {
	ds := []diag.Diagnostic{sampleDiag("a.wxs", 1, 1, 0)}
	var plain, colored bytes.Buffer
	_ = Pretty(&plain, ds, nil, PrettyOpts{Color: false})
	_ = Pretty(&colored, ds, nil, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Errorf("plain output has escapes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Errorf("colored output has no escapes: %q", colored.String())
	}
}

func TestPrettySummary(t *testing.T) {
	var buf bytes.Buffer
	_ = PrettySummary(&buf, diag.Counts{Errors: 1, Warnings: 1, Infos: 1}, 2, false)
	if got, want := buf.String(), "3 problems (1 error, 1 warning, 1 info) in 2 files\n"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
	buf.Reset()
	_ = PrettySummary(&buf, diag.Counts{}, 1, false)
	if got, want := buf.String(), "no problems found in 1 file\n"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestCompact(t *testing.T) {
	ds := []diag.Diagnostic{
		sampleDiag("a.wxs", 10, 5, 0),
		diag.New(diag.SevInfo, "style-rule", source.Location{File: "b.wxs", Line: 1, Column: 1}, "msg"),
	}
	var buf bytes.Buffer
	if err := Compact(&buf, ds, PathModeAsIs, ""); err != nil {
		t.Fatal(err)
	}
	want := "a.wxs:10:5: error: invalid-reference: ComponentRef references undefined Component 'X'\n" +
		"b.wxs:1:1: info: style-rule: msg\n"
	if buf.String() != want {
		t.Errorf("compact =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPretty, "text": FormatPretty, "JSON": FormatJSON, "gha": FormatGitHub, "sarif": FormatSarif, "junit": FormatJUnit, "GitLab": FormatGitLab, "codeclimate": FormatGitLab} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
