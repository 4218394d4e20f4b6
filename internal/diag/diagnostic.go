package diag

import (
	"winter/internal/source"
)

// Related points at a secondary location.
type Related struct {
	Location source.Location `json:"location" msgpack:"location"`
	Message  string          `json:"message" msgpack:"message"`
}

type Diagnostic struct {
	RuleID   string          `msgpack:"rule_id"`
	Severity Severity        `msgpack:"severity"`
	Category string          `msgpack:"category,omitempty"`
	Message  string          `msgpack:"message"`
	Location source.Location `msgpack:"location"`
	Help     string          `msgpack:"help,omitempty"`
	Fix      *Fix            `msgpack:"fix,omitempty"`
	Related  []Related       `msgpack:"related,omitempty"`
}

// New builds a diagnostic without fix or related locations.
func New(sev Severity, ruleID string, loc source.Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		RuleID:   ruleID,
		Location: loc,
		Message:  msg,
	}
}

func NewError(ruleID string, loc source.Location, msg string) Diagnostic {
	return New(SevError, ruleID, loc, msg)
}

func (d Diagnostic) WithRelated(loc source.Location, msg string) Diagnostic {
	d.Related = append(append([]Related(nil), d.Related...), Related{Location: loc, Message: msg})
	return d
}

func (d Diagnostic) WithFix(f Fix) Diagnostic {
	d.Fix = &f
	return d
}

func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// RuleMeta is the rule-level metadata adapters need (SARIF rule table, hover).
type RuleMeta struct {
	ID          string
	Title       string
	Description string
	Category    string
	HelpURI     string
	Severity    Severity
}
