package record

import (
	"encoding/json"
	"strings"

	crerrors "github.com/otherjamesbrown/convrep/pkg/errors"
)

// ParseLoose parses a structured blob: standard JSON first, then a permissive
// literal form that tolerates single-quoted strings and True/False/None
// keywords (the shape produced by the upstream system's string-coerced
// payloads). Returns a ParseError when neither form parses.
func ParseLoose(s string) (any, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, crerrors.NewParseError("literal", s, nil)
	}

	var out any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	converted := literalToJSON(trimmed)
	if err := json.Unmarshal([]byte(converted), &out); err != nil {
		return nil, crerrors.NewParseError("literal", s, err)
	}
	return out, nil
}

// literalToJSON rewrites a Python-style literal into JSON: single-quoted
// strings become double-quoted (escaping embedded double quotes), and the
// bare keywords True/False/None become their JSON spellings. Content inside
// existing double-quoted strings is left untouched.
func literalToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\'':
			b.WriteByte('"')
			i++
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					next := s[i+1]
					if next == '\'' {
						b.WriteByte('\'')
					} else {
						b.WriteByte('\\')
						b.WriteByte(next)
					}
					i += 2
					continue
				}
				if c == '\'' {
					i++
					break
				}
				if c == '"' {
					b.WriteString(`\"`)
					i++
					continue
				}
				b.WriteByte(c)
				i++
			}
			b.WriteByte('"')
		case c == '"':
			b.WriteByte(c)
			i++
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					b.WriteByte(c)
					b.WriteByte(s[i+1])
					i += 2
					continue
				}
				b.WriteByte(c)
				i++
				if c == '"' {
					break
				}
			}
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// RepairQuotes undoes the double-escaping a CSV round trip applies to embedded
// JSON: repeated double quotes collapse to one, and a wrapping quote pair is
// stripped.
func RepairQuotes(s string) string {
	out := strings.ReplaceAll(s, `""""`, `"`)
	out = strings.ReplaceAll(out, `""`, `"`)
	if len(out) >= 2 && strings.HasPrefix(out, `"`) && strings.HasSuffix(out, `"`) {
		inner := out[1 : len(out)-1]
		if strings.HasPrefix(inner, "{") || strings.HasPrefix(inner, "[") {
			out = inner
		}
	}
	return out
}
