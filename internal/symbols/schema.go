package symbols

// DefKind describes an element kind that defines a symbol.
type DefKind struct {
	// Canonical is the bucket the definition lives in.
	Canonical string
	// IDAttrs are tried in order; the first non-empty one names the symbol.
	IDAttrs []string
	// DetailAttr, if set, is shown as "DetailAttr: value" in hovers.
	DetailAttr string
}

// Schema tells the index which element kinds define and reference symbols.
// Schemas are supplied by dialect bundles and never mutated after construction.
type Schema struct {
	Definitions map[string]DefKind
	// References maps a reference kind to the canonical kind it resolves against.
	References map[string]string
	// RefAttr is the attribute naming the target; defaults to "Id".
	RefAttr string
	// Builtins are always defined: canonical kind -> ids.
	Builtins map[string][]string
}

// Canonical returns the bucket for a definition, reference or canonical kind.
func (s *Schema) Canonical(kind string) (string, bool) {
	if s == nil {
		return "", false
	}
	if d, ok := s.Definitions[kind]; ok {
		return d.Canonical, true
	}
	if c, ok := s.References[kind]; ok {
		return c, true
	}
	for _, d := range s.Definitions {
		if d.Canonical == kind {
			return kind, true
		}
	}
	return "", false
}

func (s *Schema) refAttr() string {
	if s.RefAttr == "" {
		return "Id"
	}
	return s.RefAttr
}
