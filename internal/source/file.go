package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"fortio.org/safecast"
)

// NewFile builds a standalone File outside of any FileSet. Content is used as-is.
func NewFile(path string, content []byte) *File {
	return &File{
		Path:    normalizePath(path),
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
	}
}

// Position converts a byte offset into a 1-based line/column pair.
func (f *File) Position(off uint32) LineCol {
	return toLineCol(f.LineIdx, off)
}

// Locate resolves a span into a Location; Length is the span width.
func (f *File) Locate(span Span) Location {
	lc := f.Position(span.Start)
	return Location{
		File:   f.Path,
		Line:   int(lc.Line),
		Column: int(lc.Col),
		Length: int(span.Len()),
	}
}

// LineCount returns the number of display lines.
func (f *File) LineCount() int {
	return len(f.LineIdx) + 1
}

// LineSpan returns the byte range of the given 1-based line, excluding the
// trailing newline. Out of range lines yield ok=false.
func (f *File) LineSpan(lineNum int) (Span, bool) {
	if lineNum < 1 || lineNum > f.LineCount() {
		return Span{}, false
	}
	var start uint32
	if lineNum > 1 {
		start = f.LineIdx[lineNum-2] + 1
	}
	end, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	if lineNum-1 < len(f.LineIdx) {
		end = f.LineIdx[lineNum-1]
	}
	return Span{File: f.ID, Start: start, End: end}, true
}

// Offset converts a 1-based line and byte column back to an offset, clamping
// the column to the line length.
func (f *File) Offset(lineNum, col int) (uint32, bool) {
	sp, ok := f.LineSpan(lineNum)
	if !ok {
		return 0, false
	}
	if col < 1 {
		col = 1
	}
	c, err := safecast.Conv[uint32](col - 1)
	if err != nil {
		return 0, false
	}
	off := sp.Start + c
	if off > sp.End {
		off = sp.End
	}
	return off, true
}

// GetLine возвращает строку с заданным номером (1-based) из файла.
// Если строка не существует, возвращает пустую строку.
func (f *File) GetLine(lineNum int) string {
	sp, ok := f.LineSpan(lineNum)
	if !ok {
		return ""
	}
	return string(f.Content[sp.Start:sp.End])
}

// Lines splits the content into display lines.
func (f *File) Lines() []string {
	out := make([]string, 0, f.LineCount())
	for i := 1; i <= f.LineCount(); i++ {
		out = append(out, f.GetLine(i))
	}
	return out
}

// FormatPath форматирует путь к файлу в зависимости от режима.
// mode: "absolute", "relative", "basename", "auto"
func (f *File) FormatPath(mode, baseDir string) string {
	switch mode {
	case "absolute":
		if abs, err := AbsolutePath(f.Path); err == nil {
			return abs
		}
		return f.Path

	case "relative":
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := RelativePath(f.Path, baseDir); err == nil {
			return rel
		}
		return f.Path

	case "basename":
		return BaseName(f.Path)

	case "auto":
		if len(f.Path) < 40 || !filepath.IsAbs(f.Path) {
			return f.Path
		}
		return BaseName(f.Path)

	default:
		return f.Path
	}
}
