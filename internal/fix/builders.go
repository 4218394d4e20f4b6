package fix

import (
	"winter/internal/diag"
	"winter/internal/source"
)

// Option mutates a fix during construction.
type Option func(*diag.Fix)

// WithSafety overrides the default safe classification.
func WithSafety(s diag.Safety) Option {
	return func(f *diag.Fix) {
		f.Safety = s
	}
}

// WithDescription sets the human readable summary of the edit.
func WithDescription(desc string) Option {
	return func(f *diag.Fix) {
		f.Description = desc
	}
}

func applyOptions(f *diag.Fix, opts []Option) *diag.Fix {
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// ReplaceLine builds a fix that swaps the whole 1-based line for text.
// It returns nil when the line does not exist or text is unchanged.
func ReplaceLine(f *source.File, line int, text string, opts ...Option) *diag.Fix {
	ls, ok := f.LineSpan(line)
	if !ok {
		return nil
	}
	old := string(f.Content[ls.Start:ls.End])
	if old == text {
		return nil
	}
	return applyOptions(&diag.Fix{
		Replacement: text,
		Line:        line,
		Start:       int(ls.Start),
		End:         int(ls.End),
		OldText:     old,
		Safety:      diag.SafetySafe,
	}, opts)
}

// SpliceLine replaces the bytes [from, to) of the line with insert. Both
// offsets are absolute and must lie on that line.
func SpliceLine(f *source.File, line int, from, to uint32, insert string, opts ...Option) *diag.Fix {
	ls, ok := f.LineSpan(line)
	if !ok || from < ls.Start || to > ls.End || from > to {
		return nil
	}
	old := f.Content[ls.Start:ls.End]
	a, b := from-ls.Start, to-ls.Start
	text := string(old[:a]) + insert + string(old[b:])
	return ReplaceLine(f, line, text, opts...)
}

// InsertAt inserts text at an absolute offset on line.
func InsertAt(f *source.File, line int, at uint32, text string, opts ...Option) *diag.Fix {
	return SpliceLine(f, line, at, at, text, opts...)
}

// DeleteRange removes [from, to) from line.
func DeleteRange(f *source.File, line int, from, to uint32, opts ...Option) *diag.Fix {
	return SpliceLine(f, line, from, to, "", opts...)
}
