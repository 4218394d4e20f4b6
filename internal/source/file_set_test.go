package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("Product.wxs", []byte("<Wix/>"), 0)
	id2 := fs.Add("Product.wxs", []byte("<Wix>\n</Wix>"), 0)
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}

	// GetLatest указывает на последнюю версию
	latest, ok := fs.GetLatest("Product.wxs")
	if !ok || latest != id2 {
		t.Fatalf("expected latest id %d, got %d (ok=%v)", id2, latest, ok)
	}
	if got := string(fs.Get(id1).Content); got != "<Wix/>" {
		t.Errorf("old version content changed: %q", got)
	}
	if fs.Get(99) != nil {
		t.Errorf("expected nil for unknown id")
	}
}

func TestAddVirtualNormalizes(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("buf.wxs", []byte("\xEF\xBB\xBFa\r\nb\r\n"))
	file := fs.Get(id)

	if string(file.Content) != "a\nb\n" {
		t.Fatalf("unexpected content %q", file.Content)
	}
	want := FileVirtual | FileHadBOM | FileNormalizedCRLF
	if file.Flags != want {
		t.Errorf("flags = %b, want %b", file.Flags, want)
	}
	if len(file.LineIdx) != 2 || file.LineIdx[0] != 1 || file.LineIdx[1] != 3 {
		t.Errorf("unexpected LineIdx %v", file.LineIdx)
	}
}

func TestResolveUTF8(t *testing.T) {
	fs := NewFileSet()
	// α занимает 2 байта
	id := fs.AddVirtual("test.wxs", []byte("α\nb"))

	start, end := fs.Resolve(Span{File: id, Start: 0, End: 2})
	if start != (LineCol{Line: 1, Col: 1}) {
		t.Errorf("start = %+v", start)
	}
	if end != (LineCol{Line: 1, Col: 3}) {
		t.Errorf("end = %+v", end)
	}
	if lc := fs.Get(id).Position(3); lc != (LineCol{Line: 2, Col: 1}) {
		t.Errorf("second line start = %+v", lc)
	}
}

func TestLineSpanAndOffset(t *testing.T) {
	f := NewFile("a.wxs", []byte("one\ntwo\n\nfour"))

	if f.LineCount() != 4 {
		t.Fatalf("LineCount = %d", f.LineCount())
	}
	cases := []struct {
		line int
		want string
	}{
		{1, "one"}, {2, "two"}, {3, ""}, {4, "four"}, {5, ""}, {0, ""},
	}
	for _, tc := range cases {
		if got := f.GetLine(tc.line); got != tc.want {
			t.Errorf("GetLine(%d) = %q, want %q", tc.line, got, tc.want)
		}
	}

	off, ok := f.Offset(2, 2)
	if !ok || off != 5 {
		t.Errorf("Offset(2,2) = %d, %v", off, ok)
	}
	// колонка за концом строки прижимается к концу
	off, ok = f.Offset(1, 80)
	if !ok || off != 3 {
		t.Errorf("Offset(1,80) = %d, %v", off, ok)
	}
	if _, ok := f.Offset(9, 1); ok {
		t.Errorf("expected out of range line to fail")
	}
}

func TestLocate(t *testing.T) {
	f := NewFile("dir/a.wxs", []byte("<A>\n  <B/>\n</A>"))
	loc := f.Locate(Span{Start: 6, End: 10})
	want := Location{File: "dir/a.wxs", Line: 2, Column: 3, Length: 4}
	if loc != want {
		t.Errorf("Locate = %+v, want %+v", loc, want)
	}
}

func TestEdgeCases(t *testing.T) {
	fs := NewFileSet()

	if f := fs.Get(fs.AddVirtual("empty.wxs", nil)); len(f.LineIdx) != 0 || f.LineCount() != 1 {
		t.Errorf("empty file: LineIdx=%v", f.LineIdx)
	}
	if f := fs.Get(fs.AddVirtual("nl.wxs", []byte("\n"))); len(f.LineIdx) != 1 || f.LineIdx[0] != 0 {
		t.Errorf("newline-only file: LineIdx=%v", f.LineIdx)
	}
}

func TestLoadCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Product.wxs")
	if err := os.WriteFile(path, []byte("a\r\nb\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	file := fs.Get(id)
	if string(file.Content) != "a\nb\n" {
		t.Errorf("content = %q", file.Content)
	}
	if file.Flags&FileNormalizedCRLF == 0 {
		t.Error("expected FileNormalizedCRLF flag")
	}
	if file.Flags&FileVirtual != 0 {
		t.Error("loaded file must not be virtual")
	}

	if _, err := fs.Load(filepath.Join(t.TempDir(), "missing.wxs")); err == nil {
		t.Error("expected error for missing file")
	}
}
