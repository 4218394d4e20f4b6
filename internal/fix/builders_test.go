package fix

import (
	"testing"

	"winter/internal/diag"
	"winter/internal/source"
)

func TestReplaceLine(t *testing.T) {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("a.wxs", []byte("<Wix>\n  <Component/>\n</Wix>")))

	fx := ReplaceLine(f, 2, "  <Component Guid=\"*\"/>", WithDescription("add Guid"))
	if fx == nil {
		t.Fatal("expected fix")
	}
	if fx.Line != 2 || fx.Start != 6 || fx.End != 20 {
		t.Fatalf("unexpected range %d [%d,%d)", fx.Line, fx.Start, fx.End)
	}
	if fx.OldText != "  <Component/>" || fx.Safety != diag.SafetySafe || fx.Description != "add Guid" {
		t.Fatalf("unexpected fix %+v", fx)
	}

	if ReplaceLine(f, 2, "  <Component/>") != nil {
		t.Error("unchanged line must not produce a fix")
	}
	if ReplaceLine(f, 9, "x") != nil {
		t.Error("out of range line must not produce a fix")
	}
}

// TestSplice проверяет вставку и удаление внутри строки
func TestSplice(t *testing.T) {
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("a.wxs", []byte("<Wix>\n<File Id=\"a\" Vital=\"yes\"/>\n</Wix>")))
	ls, _ := f.LineSpan(2)

	ins := InsertAt(f, 2, ls.Start+12, ` KeyPath="yes"`, WithSafety(diag.SafetyUnsafe))
	if ins == nil || ins.Replacement != `<File Id="a" KeyPath="yes" Vital="yes"/>` {
		t.Fatalf("unexpected insert %+v", ins)
	}
	if ins.Safety != diag.SafetyUnsafe {
		t.Errorf("safety option ignored")
	}

	del := DeleteRange(f, 2, ls.Start+12, ls.Start+24)
	if del == nil || del.Replacement != `<File Id="a"/>` {
		t.Fatalf("unexpected delete %+v", del)
	}

	if SpliceLine(f, 2, ls.Start, ls.End+5, "") != nil {
		t.Error("range past the line must be rejected")
	}
}
