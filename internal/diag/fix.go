package diag

import (
	"fmt"
	"strings"
)

// Safety classifies whether a fix may be applied without review.
type Safety uint8

const (
	SafetySafe Safety = iota
	SafetyUnsafe
	SafetyDisplay
)

func (s Safety) String() string {
	switch s {
	case SafetySafe:
		return "safe"
	case SafetyUnsafe:
		return "unsafe"
	case SafetyDisplay:
		return "display"
	}
	return "unknown"
}

// ParseSafety accepts "safe", "unsafe" and "display" (also "display-only", "manual").
func ParseSafety(s string) (Safety, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "safe":
		return SafetySafe, nil
	case "unsafe":
		return SafetyUnsafe, nil
	case "display", "display-only", "manual":
		return SafetyDisplay, nil
	}
	return SafetyDisplay, fmt.Errorf("unknown fix safety %q", s)
}

func (s Safety) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Safety) UnmarshalText(b []byte) error {
	v, err := ParseSafety(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Fix replaces one whole source line. Start and End are byte offsets of the
// line content (newline excluded); OldText guards against stale edits.
type Fix struct {
	Description string `msgpack:"description"`
	Replacement string `msgpack:"replacement"`
	Line        int    `msgpack:"line"`
	Start       int    `msgpack:"start"`
	End         int    `msgpack:"end"`
	OldText     string `msgpack:"old_text,omitempty"`
	Safety      Safety `msgpack:"safety"`
}

// Applicable reports whether the fix may be applied; unsafe fixes need allowUnsafe.
func (f *Fix) Applicable(allowUnsafe bool) bool {
	if f == nil {
		return false
	}
	switch f.Safety {
	case SafetySafe:
		return true
	case SafetyUnsafe:
		return allowUnsafe
	}
	return false
}
