// Package observ records phase and per-rule timings for lint runs.
package observ

import (
	"fmt"
	"io"
	"time"
)

// Phases of a workspace run, in the order they happen.
const (
	PhaseParse    = "parse"
	PhaseIndex    = "index"
	PhaseEvaluate = "evaluate"
)

// PhaseReport is one finished phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	Files      int     `json:"files"`
	DurationMS float64 `json:"duration_ms"`
}

// Report lists the phases of a run in the order they finished.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Timer measures the phases of one run. Phases follow each other, so a
// Timer belongs to the goroutine driving the run.
type Timer struct {
	now    func() time.Time
	phases []PhaseReport
}

func NewTimer() *Timer { return &Timer{now: time.Now} }

// Phase starts timing name. The returned func stops the clock and records
// how many files the phase handled; call it once.
func (t *Timer) Phase(name string) (done func(files int)) {
	began := t.now()
	return func(files int) {
		t.phases = append(t.phases, PhaseReport{
			Name:       name,
			Files:      files,
			DurationMS: Millis(t.now().Sub(began)),
		})
	}
}

// Report returns a copy of the finished phases and their sum.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	r := Report{Phases: append([]PhaseReport(nil), t.phases...)}
	for _, p := range r.Phases {
		r.TotalMS += p.DurationMS
	}
	return r
}

// Write prints one aligned row per phase and a total row.
func (r Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "timings:"); err != nil {
		return err
	}
	for _, p := range r.Phases {
		if _, err := fmt.Fprintf(w, "  %-10s %5d files %9.2f ms\n", p.Name, p.Files, p.DurationMS); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-10s %21.2f ms\n", "total", r.TotalMS)
	return err
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
