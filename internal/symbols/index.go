// Package symbols collects named definitions and references from parsed
// documents and resolves references against canonical-kind buckets.
package symbols

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"

	"winter/internal/markup"
	"winter/internal/source"
)

// BuiltinFile is the pseudo path of builtin definitions.
const BuiltinFile = "<builtin>"

// Definition is a named, referenceable declaration.
type Definition struct {
	ID        string
	Kind      string
	Canonical string
	Location  source.Location
	Detail    string
	Builtin   bool
}

// Reference points at a definition by id.
type Reference struct {
	ID        string
	Kind      string
	Canonical string
	Location  source.Location
}

// Index maps canonical kind -> id -> definitions in location order.
// Mutation is not safe for concurrent use; reads are once indexing is done.
type Index struct {
	schema *Schema
	defs   map[string]map[string][]Definition
	refs   []Reference
}

// NewIndex returns an index seeded with the schema's builtins.
func NewIndex(schema *Schema) *Index {
	if schema == nil {
		schema = &Schema{}
	}
	ix := &Index{
		schema: schema,
		defs:   make(map[string]map[string][]Definition),
	}
	for canonical, ids := range schema.Builtins {
		for _, id := range ids {
			ix.addDefinition(Definition{
				ID:        id,
				Kind:      canonical,
				Canonical: canonical,
				Location:  source.Location{File: BuiltinFile},
				Builtin:   true,
			})
		}
	}
	return ix
}

// Schema returns the schema the index was built with.
func (ix *Index) Schema() *Schema {
	return ix.schema
}

// IndexSource parses src and indexes it; parse failures are returned as is.
func (ix *Index) IndexSource(path string, src []byte) error {
	tree, err := markup.Parse(path, src)
	if err != nil {
		return err
	}
	ix.IndexTree(tree)
	return nil
}

// IndexTree records every definition and reference in tree.
func (ix *Index) IndexTree(tree *markup.Tree) {
	refAttr := ix.schema.refAttr()
	for _, id := range tree.Elements() {
		n := tree.Node(id)
		if dk, ok := ix.schema.Definitions[n.Kind]; ok {
			if name := definitionID(n, dk); name != "" {
				def := Definition{
					ID:        name,
					Kind:      n.Kind,
					Canonical: dk.Canonical,
					Location:  n.Loc,
				}
				if dk.DetailAttr != "" {
					if v, ok := n.Attr(dk.DetailAttr); ok {
						def.Detail = fmt.Sprintf("%s: %s", dk.DetailAttr, v)
					}
				}
				ix.addDefinition(def)
			}
		}
		if canonical, ok := ix.schema.References[n.Kind]; ok {
			if target := n.AttrValue(refAttr); target != "" {
				ix.refs = append(ix.refs, Reference{
					ID:        normID(target),
					Kind:      n.Kind,
					Canonical: canonical,
					Location:  n.Loc,
				})
			}
		}
	}
	ix.sortRefs()
}

func definitionID(n *markup.Node, dk DefKind) string {
	attrs := dk.IDAttrs
	if len(attrs) == 0 {
		attrs = []string{"Id"}
	}
	for _, a := range attrs {
		if v := n.AttrValue(a); v != "" {
			return normID(v)
		}
	}
	return ""
}

// normID приводит идентификатор к NFC, чтобы визуально одинаковые id совпадали.
func normID(id string) string {
	return norm.NFC.String(id)
}

func (ix *Index) addDefinition(def Definition) {
	bucket := ix.defs[def.Canonical]
	if bucket == nil {
		bucket = make(map[string][]Definition)
		ix.defs[def.Canonical] = bucket
	}
	list := bucket[def.ID]
	i := sort.Search(len(list), func(i int) bool { return definitionLess(def, list[i]) })
	list = append(list, Definition{})
	copy(list[i+1:], list[i:])
	list[i] = def
	bucket[def.ID] = list
}

// builtins sort first, then by location.
func definitionLess(a, b Definition) bool {
	if a.Builtin != b.Builtin {
		return a.Builtin
	}
	return a.Location.Before(b.Location)
}

// Merge copies every non-builtin definition and reference of other into ix.
func (ix *Index) Merge(other *Index) {
	if other == nil {
		return
	}
	for _, bucket := range other.defs {
		for _, list := range bucket {
			for _, def := range list {
				if !def.Builtin {
					ix.addDefinition(def)
				}
			}
		}
	}
	ix.refs = append(ix.refs, other.refs...)
	ix.sortRefs()
}

// RemoveFile drops everything indexed from path.
func (ix *Index) RemoveFile(path string) {
	for canonical, bucket := range ix.defs {
		for id, list := range bucket {
			kept := list[:0]
			for _, d := range list {
				if d.Location.File != path {
					kept = append(kept, d)
				}
			}
			if len(kept) == 0 {
				delete(bucket, id)
			} else {
				bucket[id] = kept
			}
		}
		if len(bucket) == 0 {
			delete(ix.defs, canonical)
		}
	}
	refs := ix.refs[:0]
	for _, r := range ix.refs {
		if r.Location.File != path {
			refs = append(refs, r)
		}
	}
	ix.refs = refs
}

func (ix *Index) sortRefs() {
	sort.SliceStable(ix.refs, func(i, j int) bool {
		return ix.refs[i].Location.Before(ix.refs[j].Location)
	})
}

// GetDefinition looks id up in the bucket of kind, which may be a
// definition, reference or canonical kind. User definitions win over builtins.
func (ix *Index) GetDefinition(kind, id string) (Definition, bool) {
	canonical, ok := ix.schema.Canonical(kind)
	if !ok {
		canonical = kind
	}
	list := ix.defs[canonical][normID(id)]
	if len(list) == 0 {
		return Definition{}, false
	}
	for _, d := range list {
		if !d.Builtin {
			return d, true
		}
	}
	return list[0], true
}

// Resolve finds the definition a reference points at.
func (ix *Index) Resolve(ref Reference) (Definition, bool) {
	return ix.GetDefinition(ref.Canonical, ref.ID)
}

// DefinitionsOf returns the user definitions in kind's bucket ordered by id.
func (ix *Index) DefinitionsOf(kind string) []Definition {
	canonical, ok := ix.schema.Canonical(kind)
	if !ok {
		canonical = kind
	}
	return collect(ix.defs[canonical])
}

// Definitions returns every user definition, ordered by location.
func (ix *Index) Definitions() []Definition {
	var out []Definition
	for _, bucket := range ix.defs {
		out = append(out, collect(bucket)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location == out[j].Location {
			return out[i].Canonical < out[j].Canonical
		}
		return out[i].Location.Before(out[j].Location)
	})
	return out
}

func collect(bucket map[string][]Definition) []Definition {
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []Definition
	for _, id := range ids {
		for _, d := range bucket[id] {
			if !d.Builtin {
				out = append(out, d)
			}
		}
	}
	return out
}

// References returns all references ordered by file then position.
func (ix *Index) References() []Reference {
	return ix.refs
}

// FindReferences scans every reference for ones resolving to def.
func (ix *Index) FindReferences(def Definition) []Reference {
	var out []Reference
	for _, r := range ix.refs {
		if r.Canonical == def.Canonical && r.ID == def.ID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Location.Before(out[j].Location) })
	return out
}

// GotoDefinition resolves the innermost element at (line, col). A reference
// yields its definitions; a definition yields its references, never itself.
func (ix *Index) GotoDefinition(tree *markup.Tree, line, col int) []source.Location {
	id := tree.NodeAt(line, col)
	if id == markup.NoNode {
		return nil
	}
	n := tree.Node(id)
	if canonical, ok := ix.schema.References[n.Kind]; ok {
		target := n.AttrValue(ix.schema.refAttr())
		var out []source.Location
		for _, d := range ix.defs[canonical][normID(target)] {
			if !d.Builtin {
				out = append(out, d.Location)
			}
		}
		return out
	}
	if dk, ok := ix.schema.Definitions[n.Kind]; ok {
		name := definitionID(n, dk)
		if name == "" {
			return nil
		}
		refs := ix.FindReferences(Definition{ID: name, Canonical: dk.Canonical})
		out := make([]source.Location, 0, len(refs))
		for _, r := range refs {
			out = append(out, r.Location)
		}
		return out
	}
	return nil
}

// Digest is a stable fingerprint of the indexed symbols, used for cache keys.
func (ix *Index) Digest() string {
	h := sha256.New()
	for _, d := range ix.Definitions() {
		fmt.Fprintf(h, "d\x00%s\x00%s\x00%s\x00%d:%d\n", d.Canonical, d.ID, d.Location.File, d.Location.Line, d.Location.Column)
	}
	for _, r := range ix.refs {
		fmt.Fprintf(h, "r\x00%s\x00%s\x00%s\x00%d:%d\n", r.Canonical, r.ID, r.Location.File, r.Location.Line, r.Location.Column)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SymbolAt names the symbol under (line, col): the target of a reference or
// the definition itself. ok is false when the element is neither.
func (ix *Index) SymbolAt(tree *markup.Tree, line, col int) (def Definition, isRef, ok bool) {
	id := tree.NodeAt(line, col)
	if id == markup.NoNode {
		return Definition{}, false, false
	}
	n := tree.Node(id)
	if canonical, found := ix.schema.References[n.Kind]; found {
		target := normID(n.AttrValue(ix.schema.refAttr()))
		if target == "" {
			return Definition{}, true, false
		}
		if d, resolved := ix.GetDefinition(canonical, target); resolved {
			return d, true, true
		}
		return Definition{ID: target, Canonical: canonical}, true, true
	}
	if dk, found := ix.schema.Definitions[n.Kind]; found {
		if name := definitionID(n, dk); name != "" {
			return Definition{ID: name, Kind: n.Kind, Canonical: dk.Canonical, Location: n.Loc}, false, true
		}
	}
	return Definition{}, false, false
}

// DefinitionsFor returns every user definition sharing def's canonical kind and id.
func (ix *Index) DefinitionsFor(def Definition) []Definition {
	var out []Definition
	for _, d := range ix.defs[def.Canonical][def.ID] {
		if !d.Builtin {
			out = append(out, d)
		}
	}
	return out
}
