package diag

// Reporter receives diagnostics as checks produce them.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter collects into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// FilterReporter forwards the diagnostics Keep accepts to Next.
type FilterReporter struct {
	Keep func(Diagnostic) bool
	Next Reporter
}

func (r FilterReporter) Report(d Diagnostic) {
	if r.Next == nil || (r.Keep != nil && !r.Keep(d)) {
		return
	}
	r.Next.Report(d)
}
