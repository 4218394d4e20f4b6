package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"winter/internal/diag"
	"winter/internal/source"
)

func TestGitHubAnnotation(t *testing.T) {
	ds := []diag.Diagnostic{sampleDiag("Product.wxs", 10, 5, 0)}
	var buf bytes.Buffer
	if err := GitHub(&buf, ds, 1, GitHubOpts{PathMode: PathModeAsIs}); err != nil {
		t.Fatal(err)
	}
	prefix := "::error file=Product.wxs,line=10,col=5,title=invalid-reference::"
	if !strings.HasPrefix(buf.String(), prefix) {
		t.Errorf("got %q, want prefix %q", buf.String(), prefix)
	}
}

func TestGitHubEscaping(t *testing.T) {
	ds := []diag.Diagnostic{
		diag.New(diag.SevWarning, "r1", source.Location{File: "a,b:c.wxs", Line: 1, Column: 2}, "50% done\r\nnext"),
		diag.New(diag.SevInfo, "r2", source.Location{File: "x.wxs", Line: 3, Column: 4}, "fyi"),
	}
	var buf bytes.Buffer
	if err := GitHub(&buf, ds, 2, GitHubOpts{PathMode: PathModeAsIs, Group: true}); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if want := "::warning file=a%2Cb%3Ac.wxs,line=1,col=2,title=r1::50%25 done%0D%0Anext"; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	if !strings.HasPrefix(lines[1], "::notice ") {
		t.Errorf("info should map to notice: %q", lines[1])
	}
	if lines[2] != "::group::winter summary" || lines[len(lines)-1] != "::endgroup::" {
		t.Errorf("group block malformed:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "warnings: 1\n") {
		t.Errorf("summary counts missing:\n%s", buf.String())
	}
}
