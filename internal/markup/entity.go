package markup

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

var namedEntities = map[string]string{
	"lt":   "<",
	"gt":   ">",
	"amp":  "&",
	"quot": `"`,
	"apos": "'",
}

// decodeEntities expands entity and character references. On a malformed
// reference it returns the byte offset of the '&', otherwise -1.
func decodeEntities(s string) (string, int) {
	if !strings.Contains(s, "&") {
		return s, -1
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '&' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return "", i
		}
		ref := s[i+1 : i+end]
		if r, ok := decodeRef(ref); ok {
			b.WriteString(r)
		} else {
			return "", i
		}
		i += end + 1
	}
	return b.String(), -1
}

func decodeRef(ref string) (string, bool) {
	if v, ok := namedEntities[ref]; ok {
		return v, true
	}
	if !strings.HasPrefix(ref, "#") {
		return "", false
	}
	num, base := ref[1:], 10
	if strings.HasPrefix(num, "x") || strings.HasPrefix(num, "X") {
		num, base = num[1:], 16
	}
	cp, err := strconv.ParseUint(num, base, 32)
	if err != nil || !utf8.ValidRune(rune(cp)) {
		return "", false
	}
	return string(rune(cp)), true
}
