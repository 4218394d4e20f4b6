package diagfmt

import (
	"sync"

	"winter/internal/source"
)

// Sources supplies display lines for pretty output.
type Sources interface {
	// Line returns the 1-based line n of path.
	Line(path string, n int) (string, bool)
}

// FileSetSources serves lines from files already held in a FileSet, loading
// missing ones from disk on first use. Unreadable files are remembered and
// yield no lines.
type FileSetSources struct {
	mu     sync.Mutex
	fs     *source.FileSet
	failed map[string]bool
}

func NewFileSetSources(fs *source.FileSet) *FileSetSources {
	if fs == nil {
		fs = source.NewFileSet()
	}
	return &FileSetSources{fs: fs, failed: make(map[string]bool)}
}

func (s *FileSetSources) Line(path string, n int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fs.GetByPath(path)
	if !ok {
		if s.failed[path] {
			return "", false
		}
		id, err := s.fs.Load(path)
		if err != nil {
			s.failed[path] = true
			return "", false
		}
		f = s.fs.Get(id)
	}
	if n < 1 || n > f.LineCount() {
		return "", false
	}
	return f.GetLine(n), true
}
