package source

import "testing"

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 12}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Errorf("Cover = %v", got)
	}
	// разные файлы не объединяются
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Errorf("Cover across files = %v", got)
	}
}

func TestSpanContainsAndLen(t *testing.T) {
	s := Span{Start: 4, End: 8}
	for _, off := range []uint32{4, 6, 8} {
		if !s.Contains(off) {
			t.Errorf("expected %d inside %v", off, s)
		}
	}
	if s.Contains(3) || s.Contains(9) {
		t.Errorf("unexpected containment")
	}
	if s.Len() != 4 || s.Empty() {
		t.Errorf("Len = %d", s.Len())
	}
	if (Span{Start: 8, End: 4}).Len() != 0 {
		t.Errorf("inverted span must have zero length")
	}
}
