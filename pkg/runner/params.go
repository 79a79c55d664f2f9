package runner

import (
	"fmt"
	"strings"
	"unicode"
)

// BindNamed rewrites :Name placeholders in query to positional $n arguments
// and returns the values in placeholder order. Repeated names reuse the same
// position. String literals, quoted identifiers, comments, and Postgres
// ::type casts are left untouched.
func BindNamed(query string, params map[string]any) (string, []any, error) {
	var out strings.Builder
	out.Grow(len(query))

	var args []any
	positions := make(map[string]int)

	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case ch == '\'' || ch == '"':
			// Copy the literal/identifier verbatim, honoring doubled quotes.
			quote := ch
			out.WriteRune(ch)
			for i++; i < len(runes); i++ {
				out.WriteRune(runes[i])
				if runes[i] == quote {
					if i+1 < len(runes) && runes[i+1] == quote {
						i++
						out.WriteRune(runes[i])
						continue
					}
					break
				}
			}

		case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
			// Line comment.
			for ; i < len(runes) && runes[i] != '\n'; i++ {
				out.WriteRune(runes[i])
			}
			if i < len(runes) {
				out.WriteRune('\n')
			}

		case ch == '/' && i+1 < len(runes) && runes[i+1] == '*':
			// Block comment.
			out.WriteRune(runes[i])
			out.WriteRune(runes[i+1])
			for i += 2; i < len(runes); i++ {
				out.WriteRune(runes[i])
				if runes[i] == '/' && runes[i-1] == '*' {
					break
				}
			}

		case ch == ':' && i+1 < len(runes) && runes[i+1] == ':':
			// Type cast, not a parameter.
			out.WriteString("::")
			i++

		case ch == ':' && i+1 < len(runes) && isNameStart(runes[i+1]):
			start := i + 1
			end := start
			for end < len(runes) && isNameRune(runes[end]) {
				end++
			}
			name := string(runes[start:end])

			value, ok := params[name]
			if !ok {
				return "", nil, fmt.Errorf("no value bound for parameter :%s", name)
			}

			pos, seen := positions[name]
			if !seen {
				args = append(args, value)
				pos = len(args)
				positions[name] = pos
			}
			fmt.Fprintf(&out, "$%d", pos)
			i = end - 1

		default:
			out.WriteRune(ch)
		}
	}

	return out.String(), args, nil
}

func isNameStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
