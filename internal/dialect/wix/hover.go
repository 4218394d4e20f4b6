package wix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"winter/internal/kb"
	"winter/internal/markup"
)

// Hover describes the element, attribute or well-known value under the
// cursor. Positions are 1-based with byte columns.
func (b *Bundle) Hover(ctx context.Context, doc *markup.Document, line, col int) (string, bool) {
	id := doc.Tree.NodeAt(line, col)
	n := doc.Tree.Node(id)
	if n == nil {
		return "", false
	}
	off, ok := doc.File.Offset(line, col)
	if !ok || !n.StartTag.Contains(off) {
		return "", false
	}

	for _, a := range n.Attrs {
		switch {
		case a.ValueSpan.Contains(off):
			return valueHover(a.Value)
		case a.Span.Contains(off):
			return b.attributeHover(ctx, n.Kind, a.Name)
		}
	}
	return b.elementHover(ctx, n.Kind)
}

func valueHover(v string) (string, bool) {
	if desc, ok := StandardDirectories[v]; ok {
		return fmt.Sprintf("## %s\n\n%s\n\n**Type:** Standard Directory", v, desc), true
	}
	if desc, ok := BuiltinProperties[v]; ok {
		return fmt.Sprintf("## %s\n\n%s\n\n**Type:** Builtin Property", v, desc), true
	}
	for _, ui := range UISets {
		if ui == v {
			return fmt.Sprintf("## %s\n\nDialog set from the WixUI extension.", v), true
		}
	}
	return "", false
}

func (b *Bundle) elementHover(ctx context.Context, kind string) (string, bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", kind)

	if b.docs != nil {
		e, err := b.docs.GetElement(ctx, kind)
		switch {
		case err == nil:
			if e.Description != "" {
				sb.WriteString(e.Description)
				sb.WriteString("\n\n")
			}
			if e.Remarks != "" {
				sb.WriteString(e.Remarks)
				sb.WriteString("\n\n")
			}
			if e.DeprecatedVersion != "" {
				fmt.Fprintf(&sb, "**Deprecated since:** %s\n\n", e.DeprecatedVersion)
			}
			if attrs, err := b.docs.GetAttributes(ctx, kind); err == nil {
				var req []string
				for _, a := range attrs {
					if a.Required {
						req = append(req, a.Name)
					}
				}
				if len(req) > 0 {
					fmt.Fprintf(&sb, "**Required attributes:** %s\n\n", strings.Join(req, ", "))
				}
			}
			if children, err := b.docs.GetChildren(ctx, kind); err == nil && len(children) > 0 {
				fmt.Fprintf(&sb, "**Children:** %s\n\n", strings.Join(children, ", "))
			}
			fmt.Fprintf(&sb, "[WiX Documentation](%s)", ElementDocsURL(kind))
			return sb.String(), true
		case !errors.Is(err, kb.ErrNotFound):
			log.Debugf("element docs for %s: %v", kind, err)
		}
	}

	desc, ok := elementDocs[kind]
	if !ok {
		return "", false
	}
	sb.WriteString(desc)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "[WiX Documentation](%s)", ElementDocsURL(kind))
	return sb.String(), true
}

func (b *Bundle) attributeHover(ctx context.Context, kind, attr string) (string, bool) {
	if b.docs == nil {
		return "", false
	}
	attrs, err := b.docs.GetAttributes(ctx, kind)
	if err != nil {
		log.Debugf("attribute docs for %s: %v", kind, err)
		return "", false
	}
	for _, a := range attrs {
		if !strings.EqualFold(a.Name, attr) {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s.%s\n\n", kind, a.Name)
		if a.Description != "" {
			sb.WriteString(a.Description)
			sb.WriteString("\n\n")
		}
		if a.Type != "" {
			fmt.Fprintf(&sb, "**Type:** `%s`\n\n", a.Type)
		}
		if a.Required {
			sb.WriteString("**Required:** Yes\n\n")
		}
		if a.DefaultValue != "" {
			fmt.Fprintf(&sb, "**Default:** `%s`\n\n", a.DefaultValue)
		}
		if len(a.EnumValues) > 0 {
			sb.WriteString("**Values:**\n")
			for _, v := range a.EnumValues {
				fmt.Fprintf(&sb, "- `%s`\n", v)
			}
		}
		return strings.TrimRight(sb.String(), "\n"), true
	}
	return "", false
}
