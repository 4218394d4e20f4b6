package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"winter/internal/lint"
)

func TestProgressModelTracksFiles(t *testing.T) {
	files := []string{"a.wxs", "b.wxs"}
	m := NewProgressModel("checking", files, nil).(*progressModel)

	m.applyEvent(lint.Event{File: "a.wxs", Stage: lint.StageIndex, Status: lint.StatusWorking})
	if got := m.items[0].status; got != "indexing" {
		t.Fatalf("status = %q, want indexing", got)
	}
	if got := m.percent(); got != 0.15 {
		t.Fatalf("percent = %v, want 0.15", got)
	}

	m.applyEvent(lint.Event{File: "a.wxs", Stage: lint.StageDiagnose, Status: lint.StatusDone})
	m.applyEvent(lint.Event{File: "b.wxs", Stage: lint.StageIndex, Status: lint.StatusError})
	// поздние события для завершённого файла игнорируются
	m.applyEvent(lint.Event{File: "b.wxs", Stage: lint.StageDiagnose, Status: lint.StatusWorking})
	m.applyEvent(lint.Event{File: "unknown.wxs", Stage: lint.StageIndex, Status: lint.StatusWorking})

	if got := m.percent(); got != 1 {
		t.Fatalf("percent = %v, want 1", got)
	}
	if m.items[1].status != "error" || m.failures != 1 {
		t.Fatalf("b.wxs = %+v, failures = %d", m.items[1], m.failures)
	}

	m.applyEvent(lint.Event{Stage: lint.StageDiagnose, Status: lint.StatusDone})
	m.done = true
	view := m.View()
	for _, want := range []string{"done: checking", "a.wxs", "1 file(s) failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q:\n%s", want, view)
		}
	}
}

func TestProgressModelLimitsRows(t *testing.T) {
	var files []string
	for i := 0; i < maxRows+5; i++ {
		files = append(files, strings.Repeat("x", i+1)+".wxs")
	}
	m := NewProgressModel("checking", files, nil).(*progressModel)
	for _, f := range files {
		m.applyEvent(lint.Event{File: f, Stage: lint.StageDiagnose, Status: lint.StatusWorking})
	}
	if len(m.recent) != maxRows {
		t.Fatalf("recent = %d rows, want %d", len(m.recent), maxRows)
	}
	if !strings.Contains(m.View(), "5 more file(s)") {
		t.Errorf("expected hidden file count in view")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("installer/Product.wxs", 12); got != "installer..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("日本語.wxs", 3); got != "日" {
		t.Errorf("truncate wide = %q", got)
	}
	// многоточие входит в ширину
	if got := truncate("日本語のファイル.wxs", 9); got != "日本語..." || runewidth.StringWidth(got) != 9 {
		t.Errorf("truncate wide tail = %q", got)
	}
	for _, w := range []int{4, 7, 12, 20} {
		if got := truncate("installer/Product.wxs", w); runewidth.StringWidth(got) != w {
			t.Errorf("truncate(%d) = %q has width %d", w, got, runewidth.StringWidth(got))
		}
	}
}
