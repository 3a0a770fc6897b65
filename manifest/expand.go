package manifest

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// ExpandEnv substitutes environment variables in s.
//
//	$$       a literal $
//	$NAME    the variable, or "" when unset
//	${NAME}  the variable; an unset name is an error
//
// Every unset braced name is listed in one ErrMissingEnv error.
func ExpandEnv(s string) (string, error) {
	return expand(s, os.LookupEnv, nil)
}

// expand scans s once. When secret is non-nil, "${secretref:provider:ref}"
// is handed to it whole instead of being looked up as a variable, so the
// colon-separated reference survives env expansion.
func expand(s string, env func(string) (string, bool), secret func(string) (string, error)) (string, error) {
	var (
		b       strings.Builder
		missing []string
	)
	b.Grow(len(s))
	for i := 0; i < len(s); {
		j := strings.IndexByte(s[i:], '$')
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+j])
		i += j
		rest := s[i+1:]

		switch {
		case strings.HasPrefix(rest, "$"):
			b.WriteByte('$')
			i += 2
		case strings.HasPrefix(rest, "{"):
			end := strings.IndexByte(rest, '}')
			if end <= 1 {
				// Unterminated or empty braces stay as written.
				b.WriteByte('$')
				i++
				continue
			}
			name := rest[1:end]
			i += end + 2
			if secret != nil && strings.HasPrefix(name, refPrefix) {
				v, err := secret(name)
				if err != nil {
					return "", err
				}
				b.WriteString(v)
				continue
			}
			v, ok := env(name)
			if !ok && !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			b.WriteString(v)
		default:
			n := nameLen(rest)
			if n == 0 {
				b.WriteByte('$')
				i++
				continue
			}
			v, _ := env(rest[:n])
			b.WriteString(v)
			i += n + 1
		}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return b.String(), nil
}

// nameLen returns the length of the variable name at the start of s.
func nameLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		letter := c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
		if letter || i > 0 && '0' <= c && c <= '9' {
			continue
		}
		return i
	}
	return len(s)
}
