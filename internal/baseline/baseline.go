// Package baseline records accepted findings so a project can adopt the
// linter without fixing everything first. A diagnostic matches a recorded
// issue with the same rule and file when the line number, the trimmed
// source line or the message is unchanged.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"winter/internal/diag"
)

var log = commonlog.GetLogger("winter.baseline")

// Version is the file format written by Save.
const Version = "1"

// Issue is one accepted finding.
type Issue struct {
	RuleID string `json:"rule_id"`
	// File is slash separated and relative to the baseline's directory
	// when the finding lies below it.
	File        string `json:"file"`
	Line        int    `json:"line"`
	ContentHash string `json:"content_hash,omitempty"`
	MessageHash string `json:"message_hash,omitempty"`
}

func (i Issue) key() string { return i.RuleID + "\x00" + i.File }

// Lines supplies source lines for content hashes. diagfmt.FileSetSources
// implements it.
type Lines interface {
	Line(path string, n int) (string, bool)
}

type Baseline struct {
	Version   string  `json:"version"`
	Issues    []Issue `json:"issues"`
	CreatedAt string  `json:"created_at,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`

	base  string
	index map[string][]int
}

// New returns an empty baseline whose paths are relative to dir.
func New(dir string) *Baseline {
	b := &Baseline{Version: Version, base: dir}
	b.reindex()
	return b
}

// Load reads a baseline file. Paths resolve against the file's directory.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b := New(filepath.Dir(path))
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}
	if b.Version == "" {
		b.Version = Version
	}
	if b.Version != Version {
		return nil, fmt.Errorf("baseline %s: unsupported version %q", path, b.Version)
	}
	b.reindex()
	log.Debugf("loaded %d baselined issues from %s", len(b.Issues), path)
	return b, nil
}

// LoadOrNew is Load, returning an empty baseline when path does not exist.
// created reports the latter.
func LoadOrNew(path string) (b *Baseline, created bool, err error) {
	b, err = Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(filepath.Dir(path)), true, nil
	}
	return b, false, err
}

// Save writes the baseline atomically, stamping it with now.
func (b *Baseline) Save(path string, now time.Time) error {
	stamp := now.UTC().Format(time.RFC3339)
	if b.CreatedAt == "" {
		b.CreatedAt = stamp
	}
	b.UpdatedAt = stamp
	sort.Slice(b.Issues, func(i, j int) bool {
		x, y := b.Issues[i], b.Issues[j]
		if x.File != y.File {
			return x.File < y.File
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		return x.RuleID < y.RuleID
	})
	b.reindex()

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".baseline-*")
	if err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Debugf("failed to remove temp file: %v", rmErr)
		}
	}()
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("save baseline: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}
	return os.Rename(f.Name(), path)
}

func (b *Baseline) Len() int { return len(b.Issues) }

// CountByRule tallies the recorded issues per rule.
func (b *Baseline) CountByRule() map[string]int {
	out := make(map[string]int)
	for _, i := range b.Issues {
		out[i.RuleID]++
	}
	return out
}

// Add records every diagnostic not already recorded and returns how many
// were added. lines may be nil.
func (b *Baseline) Add(ds []diag.Diagnostic, lines Lines) int {
	added := 0
	for _, d := range ds {
		issue := b.issue(d, lines)
		if b.has(issue) {
			continue
		}
		b.Issues = append(b.Issues, issue)
		b.index[issue.key()] = append(b.index[issue.key()], len(b.Issues)-1)
		added++
	}
	return added
}

// Contains reports whether d matches a recorded issue.
func (b *Baseline) Contains(d diag.Diagnostic, lines Lines) bool {
	want := b.issue(d, lines)
	for _, i := range b.index[want.key()] {
		got := b.Issues[i]
		switch {
		case got.Line == want.Line:
			return true
		case got.ContentHash != "" && got.ContentHash == want.ContentHash:
			return true
		case got.MessageHash != "" && got.MessageHash == want.MessageHash:
			return true
		}
	}
	return false
}

// PruneMissing drops issues whose file no longer exists and returns how
// many were dropped.
func (b *Baseline) PruneMissing() int {
	kept := b.Issues[:0]
	for _, i := range b.Issues {
		p := filepath.FromSlash(i.File)
		if !filepath.IsAbs(p) {
			p = filepath.Join(b.base, p)
		}
		if _, err := os.Stat(p); err == nil {
			kept = append(kept, i)
		}
	}
	n := len(b.Issues) - len(kept)
	b.Issues = kept
	b.reindex()
	return n
}

func (b *Baseline) has(issue Issue) bool {
	for _, i := range b.index[issue.key()] {
		if b.Issues[i] == issue {
			return true
		}
	}
	return false
}

func (b *Baseline) reindex() {
	b.index = make(map[string][]int, len(b.Issues))
	for n, i := range b.Issues {
		b.index[i.key()] = append(b.index[i.key()], n)
	}
}

func (b *Baseline) issue(d diag.Diagnostic, lines Lines) Issue {
	issue := Issue{
		RuleID:      d.RuleID,
		File:        b.relative(d.Location.File),
		Line:        d.Location.Line,
		MessageHash: hash(d.Message),
	}
	if lines != nil {
		if l, ok := lines.Line(d.Location.File, d.Location.Line); ok && strings.TrimSpace(l) != "" {
			issue.ContentHash = hash(l)
		}
	}
	return issue
}

func (b *Baseline) relative(p string) string {
	if p == "" {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	if b.base != "" {
		base, err := filepath.Abs(b.base)
		if err == nil {
			if rel, err := filepath.Rel(base, abs); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return filepath.ToSlash(rel)
			}
		}
	}
	return filepath.ToSlash(abs)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(s)))
	return hex.EncodeToString(sum[:8])
}
