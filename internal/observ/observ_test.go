package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	clock := time.Unix(0, 0)
	tm := NewTimer()
	tm.now = func() time.Time { return clock }

	done := tm.Phase(PhaseParse)
	clock = clock.Add(3 * time.Millisecond)
	done(4)
	done = tm.Phase(PhaseIndex)
	clock = clock.Add(500 * time.Microsecond)
	done(3)

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != PhaseParse || r.Phases[1].Files != 3 {
		t.Fatalf("unexpected report %+v", r)
	}
	if r.Phases[0].DurationMS != 3 || r.TotalMS != 3.5 {
		t.Fatalf("unexpected durations %+v", r)
	}

	var b strings.Builder
	if err := r.Write(&b); err != nil {
		t.Fatal(err)
	}
	want := "timings:\n" +
		"  parse          4 files      3.00 ms\n" +
		"  index          3 files      0.50 ms\n" +
		"  total                       3.50 ms\n"
	if b.String() != want {
		t.Errorf("table:\n%s\nwant:\n%s", b.String(), want)
	}
	if got := NewTimer().Report(); len(got.Phases) != 0 {
		t.Errorf("empty timer report = %+v", got)
	}
}

func TestStatsConcurrent(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Observe("slow", 2*time.Millisecond)
				s.Observe("fast", time.Microsecond)
			}
		}()
	}
	wg.Wait()

	rows := s.Report()
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	// самое медленное правило первым
	if rows[0].Key != "slow" || rows[0].Calls != 800 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[0].MaxMS != 2 {
		t.Errorf("max = %v", rows[0].MaxMS)
	}
	if top := s.Top(1); strings.Contains(top, "fast") {
		t.Errorf("Top(1) = %q", top)
	}

	var nilStats *Stats
	nilStats.Observe("x", time.Second)
	if nilStats.Report() != nil {
		t.Error("nil stats must report nothing")
	}
}
