package wix

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"winter/internal/plugin"
	"winter/internal/source"
)

var tagRe = regexp.MustCompile(`<(/?)([A-Za-z_][\w:.-]*)[^<>]*?(/?)>`)

type cursorContext struct {
	element   string // tag under the cursor, "" in content
	parent    string // innermost open element before the tag
	prefix    string // partial word being typed
	attr      string // attribute whose value is being typed
	inValue   bool
	inTagName bool
	present   map[string]bool
}

// Complete works on the raw buffer so it keeps working while the document
// does not parse.
func (b *Bundle) Complete(ctx context.Context, path string, src []byte, line, col int) []plugin.Completion {
	content, _ := source.Normalize(src)
	f := source.NewFile(path, content)
	off, ok := f.Offset(line, col)
	if !ok {
		return nil
	}
	cc, ok := analyze(string(content[:off]))
	if !ok {
		return nil
	}

	var items []plugin.Completion
	switch {
	case cc.inTagName:
		items = b.elementCompletions(ctx, cc.parent)
	case cc.inValue:
		items = b.valueCompletions(ctx, cc.element, cc.attr)
	default:
		items = b.attributeCompletions(ctx, cc.element, cc.present)
	}

	out := items[:0]
	for _, it := range items {
		if strings.HasPrefix(strings.ToLower(it.Label), strings.ToLower(cc.prefix)) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortPriority != out[j].SortPriority {
			return out[i].SortPriority < out[j].SortPriority
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// analyze classifies the text before the cursor.
func analyze(before string) (cursorContext, bool) {
	lt := strings.LastIndexByte(before, '<')
	if lt < 0 || strings.LastIndexByte(before, '>') > lt {
		return cursorContext{}, false
	}
	cc := cursorContext{parent: openElement(before[:lt]), present: map[string]bool{}}
	tag := before[lt+1:]
	if strings.HasPrefix(tag, "/") || strings.HasPrefix(tag, "!") || strings.HasPrefix(tag, "?") {
		return cursorContext{}, false
	}

	nameEnd := strings.IndexAny(tag, " \t\n")
	if nameEnd < 0 {
		cc.inTagName = true
		cc.prefix = tag
		return cc, true
	}
	cc.element = localName(tag[:nameEnd])
	rest := tag[nameEnd:]

	// незакрытая кавычка означает, что курсор внутри значения
	var quote byte
	attrStart := -1
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			attrStart = i + 1
		case c == '=':
			name := strings.TrimSpace(rest[:i])
			if k := strings.LastIndexAny(name, " \t\n\"'"); k >= 0 {
				name = name[k+1:]
			}
			cc.attr = name
			cc.present[name] = true
		}
	}
	if quote != 0 {
		cc.inValue = true
		cc.prefix = rest[attrStart:]
		return cc, true
	}
	cc.attr = ""
	if k := strings.LastIndexAny(rest, " \t\n\"'"); k >= 0 {
		cc.prefix = rest[k+1:]
	}
	return cc, true
}

// openElement returns the innermost unclosed element in text.
func openElement(text string) string {
	var stack []string
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] == "/":
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == m[2] {
					stack = stack[:i]
					break
				}
			}
		case m[3] == "/":
		default:
			stack = append(stack, m[2])
		}
	}
	if len(stack) == 0 {
		return ""
	}
	return localName(stack[len(stack)-1])
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (b *Bundle) elementCompletions(ctx context.Context, parent string) []plugin.Completion {
	var names []string
	if b.docs != nil && parent != "" {
		children, err := b.docs.GetChildren(ctx, parent)
		if err != nil {
			log.Debugf("children of %s: %v", parent, err)
		}
		names = children
	}
	if len(names) == 0 {
		for name := range elementDocs {
			names = append(names, name)
		}
	}
	out := make([]plugin.Completion, 0, len(names))
	for _, name := range names {
		out = append(out, plugin.Completion{
			Label:         name,
			Kind:          plugin.CompletionElement,
			Documentation: elementDocs[name],
			InsertText:    name,
			SortPriority:  1,
		})
	}
	return out
}

var commonAttributes = map[string][]string{
	"Component":     {"Id", "Guid", "Directory", "KeyPath", "Permanent", "Shared", "Condition"},
	"File":          {"Id", "Source", "Name", "KeyPath", "Vital", "ReadOnly", "Hidden"},
	"Directory":     {"Id", "Name"},
	"Feature":       {"Id", "Title", "Description", "Level", "Display", "Absent"},
	"Package":       {"Name", "Manufacturer", "Version", "UpgradeCode", "Scope", "Compressed"},
	"Property":      {"Id", "Value", "Secure", "Hidden"},
	"RegistryValue": {"Root", "Key", "Name", "Type", "Value", "KeyPath"},
	"CustomAction":  {"Id", "BinaryRef", "DllEntry", "Execute", "Impersonate", "Return"},
}

func (b *Bundle) attributeCompletions(ctx context.Context, element string, present map[string]bool) []plugin.Completion {
	var out []plugin.Completion
	add := func(name, detail, doc string, required bool) {
		if present[name] {
			return
		}
		prio := 2
		if required {
			prio = 1
		}
		out = append(out, plugin.Completion{
			Label:         name,
			Kind:          plugin.CompletionAttribute,
			Detail:        detail,
			Documentation: doc,
			InsertText:    name + `="$1"`,
			SortPriority:  prio,
		})
	}

	if b.docs != nil {
		attrs, err := b.docs.GetAttributes(ctx, element)
		if err == nil && len(attrs) > 0 {
			for _, a := range attrs {
				add(a.Name, a.Type, a.Description, a.Required)
			}
			return out
		}
		if err != nil {
			log.Debugf("attributes of %s: %v", element, err)
		}
	}
	for _, name := range commonAttributes[element] {
		add(name, "", "", name == "Id")
	}
	return out
}

func (b *Bundle) valueCompletions(ctx context.Context, element, attr string) []plugin.Completion {
	var out []plugin.Completion
	add := func(label, detail string, kind plugin.CompletionKind) {
		out = append(out, plugin.Completion{Label: label, Kind: kind, Detail: detail, InsertText: label, SortPriority: 1})
	}

	switch {
	case attr == "Directory" || (attr == "Id" && (element == "DirectoryRef" || element == "StandardDirectory")):
		for name, desc := range StandardDirectories {
			add(name, desc, plugin.CompletionDirectory)
		}
	case attr == "Id" && element == "UIRef":
		for _, ui := range UISets {
			add(ui, "WixUI dialog set", plugin.CompletionValue)
		}
	case attr == "Id" && element == "PropertyRef":
		for name, desc := range BuiltinProperties {
			add(name, desc, plugin.CompletionProperty)
		}
	case attr == "Guid":
		add("*", "generate at build time", plugin.CompletionValue)
	}

	if b.docs != nil {
		attrs, err := b.docs.GetAttributes(ctx, element)
		if err != nil {
			log.Debugf("attributes of %s: %v", element, err)
		}
		for _, a := range attrs {
			if a.Name == attr {
				for _, v := range a.EnumValues {
					add(v, a.Type, plugin.CompletionValue)
				}
			}
		}
	}
	return out
}
