package doc

import "strings"

const (
	separator  = '.'
	escapeChar = '\\'
)

// Tokenize splits a dotted path into segments. A backslash makes the next
// character literal, so `a\.b.c` yields ["a.b", "c"]. Empty segments are
// kept: "" yields [""] and "a." yields ["a", ""].
func Tokenize(path string) []string {
	segments := make([]string, 0, strings.Count(path, ".")+1)
	var sb strings.Builder
	inEscape := false

	for _, r := range path {
		switch {
		case inEscape:
			inEscape = false
			sb.WriteRune(r)
		case r == escapeChar:
			inEscape = true
		case r == separator:
			segments = append(segments, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	return append(segments, sb.String())
}

// Escape makes key safe to use as a single path segment. Tokenize(Escape(k))
// always returns [k].
func Escape(key string) string {
	if !strings.ContainsAny(key, `.\`) {
		return key
	}
	var sb strings.Builder
	sb.Grow(len(key) + 2)
	for _, r := range key {
		if r == separator || r == escapeChar {
			sb.WriteRune(escapeChar)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Join escapes each key and joins them into a path.
func Join(keys ...string) string {
	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = Escape(k)
	}
	return strings.Join(escaped, ".")
}

// Resolve walks path from root. It reports false when an intermediate value
// is not a nested document or a key along the way is absent or holds null.
func Resolve(root map[string]any, path string) (any, bool) {
	return resolveSegments(root, Tokenize(path))
}

func resolveSegments(root map[string]any, segments []string) (any, bool) {
	var cursor any = root
	for _, seg := range segments {
		m, ok := cursor.(map[string]any)
		if !ok {
			return nil, false
		}
		cursor = m[seg]
		if cursor == nil {
			return nil, false
		}
	}
	return cursor, true
}
