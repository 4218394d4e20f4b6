package markup

import (
	"winter/internal/source"
	"winter/internal/suppress"
)

// Document is a parsed file plus its display lines and suppression table.
// Documents are immutable; an edit produces a new Document.
type Document struct {
	Path         string
	File         *source.File
	Tree         *Tree
	Lines        []string
	Suppressions *suppress.Table
}

// NewDocument normalizes src and builds a Document.
func NewDocument(path string, src []byte) (*Document, error) {
	content, _ := source.Normalize(src)
	return NewDocumentFromFile(source.NewFile(path, content))
}

// NewDocumentFromFile builds a Document over an already loaded file.
func NewDocumentFromFile(f *source.File) (*Document, error) {
	tree, err := ParseFile(f)
	if err != nil {
		return nil, err
	}
	return &Document{
		Path:         f.Path,
		File:         f,
		Tree:         tree,
		Lines:        f.Lines(),
		Suppressions: suppress.Parse(f.Content),
	}, nil
}

// Line returns the 1-based display line or "".
func (d *Document) Line(n int) string {
	if n < 1 || n > len(d.Lines) {
		return ""
	}
	return d.Lines[n-1]
}
