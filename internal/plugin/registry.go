package plugin

import (
	"path"
	"sort"
	"strings"
	"sync"
)

// Registry maps extensions to bundles. At most one bundle owns an
// extension; a later registration takes it over.
type Registry struct {
	mu      sync.RWMutex
	bundles []Bundle
	byExt   map[string]int
}

func NewRegistry(bundles ...Bundle) *Registry {
	r := &Registry{byExt: make(map[string]int)}
	for _, b := range bundles {
		r.Register(b)
	}
	return r
}

// NormalizeExt lower-cases ext and strips leading dots.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimLeft(ext, "."))
}

func (r *Registry) Register(b Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := len(r.bundles)
	r.bundles = append(r.bundles, b)
	for _, ext := range b.Extensions() {
		if e := NormalizeExt(ext); e != "" {
			r.byExt[e] = idx
		}
	}
}

// ForExt returns the bundle owning ext.
func (r *Registry) ForExt(ext string) (Bundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byExt[NormalizeExt(ext)]
	if !ok {
		return nil, false
	}
	return r.bundles[idx], true
}

// ForPath selects by the extension of the file name.
func (r *Registry) ForPath(p string) (Bundle, bool) {
	p = strings.ReplaceAll(p, `\`, "/")
	ext := path.Ext(path.Base(p))
	if ext == "" {
		return nil, false
	}
	return r.ForExt(ext)
}

// ForURI selects by the extension of the trailing path segment of uri.
// Query and fragment parts are ignored.
func (r *Registry) ForURI(uri string) (Bundle, bool) {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	seg := uri[strings.LastIndexByte(uri, '/')+1:]
	dot := strings.LastIndexByte(seg, '.')
	if dot < 0 {
		return nil, false
	}
	return r.ForExt(seg[dot+1:])
}

// Supports reports whether some bundle handles the path.
func (r *Registry) Supports(p string) bool {
	_, ok := r.ForPath(p)
	return ok
}

// Bundles returns every registered bundle, including ones whose extensions
// were all taken over.
func (r *Registry) Bundles() []Bundle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Bundle(nil), r.bundles...)
}

// Extensions returns the handled extensions, sorted, without dots.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// TriggerCharacters is the sorted, de-duplicated union over completion providers.
func (r *Registry) TriggerCharacters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, b := range r.bundles {
		cp, ok := b.(CompletionProvider)
		if !ok {
			continue
		}
		for _, c := range cp.TriggerCharacters() {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Capabilities ORs the flags of every bundle.
func (r *Registry) Capabilities() Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c Capabilities
	for _, b := range r.bundles {
		c |= b.Capabilities()
	}
	return c
}
