package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"winter/internal/diag"
	"winter/internal/source"
)

const diagnosticSource = "winter"

func protocolSeverity(s diag.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diag.SevError:
		return protocol.DiagnosticSeverityError
	case diag.SevWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

func (s *Server) convertAll(f *source.File, ds []diag.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		out = append(out, s.convert(f, d))
	}
	return out
}

// convert maps one diagnostic to its protocol form: 0-based UTF-16 range,
// severity 1/2/3 and the rule id as code.
func (s *Server) convert(f *source.File, d diag.Diagnostic) protocol.Diagnostic {
	sev := protocolSeverity(d.Severity)
	src := diagnosticSource
	out := protocol.Diagnostic{
		Range:    locationRange(f, d.Location),
		Severity: &sev,
		Code:     &protocol.IntegerOrString{Value: d.RuleID},
		Source:   &src,
		Message:  d.Message,
	}
	if d.Help != "" {
		out.Message += "\nhelp: " + d.Help
	}
	if m, ok := s.meta[d.RuleID]; ok && m.HelpURI != "" {
		out.CodeDescription = &protocol.CodeDescription{HRef: m.HelpURI}
	}
	for _, r := range d.Related {
		rf := f
		if f == nil || r.Location.File != f.Path {
			rf = s.fileFor(r.Location.File)
		}
		out.RelatedInformation = append(out.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{
				URI:   s.uriFor(r.Location.File),
				Range: locationRange(rf, r.Location),
			},
			Message: r.Message,
		})
	}
	return out
}

// fixEdit replaces the fix's whole line content.
func fixEdit(f *source.File, fx *diag.Fix) protocol.TextEdit {
	line := safeUint32(fx.Line - 1)
	end := safeUint32(utf16Len(lineText(f, fx.Line)))
	return protocol.TextEdit{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: 0},
			End:   protocol.Position{Line: line, Character: end},
		},
		NewText: fx.Replacement,
	}
}

func (s *Server) protocolLocation(loc source.Location) protocol.Location {
	return protocol.Location{
		URI:   s.uriFor(loc.File),
		Range: locationRange(s.fileFor(loc.File), loc),
	}
}
