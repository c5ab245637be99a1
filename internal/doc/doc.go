// Package doc implements the path-addressable log document that flows
// through a timber pipeline.
//
// A Doc wraps a JSON-shaped tree: nested documents are map[string]any, lists
// are []any, everything else is a scalar. Fields are addressed by dotted
// paths (see Tokenize). A Doc is not safe for concurrent mutation; the
// pipeline stage that holds it owns it.
package doc

import (
	"fmt"
	"slices"
)

// Doc is a single log record.
type Doc struct {
	source map[string]any
}

// New wraps source. The map is used as-is, not copied.
func New(source map[string]any) (*Doc, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("doc: %w", ErrInvalidDocument)
	}
	return &Doc{source: source}, nil
}

// Source returns the live root of the document.
func (d *Doc) Source() map[string]any {
	return d.source
}

// HasField reports whether path resolves.
func (d *Doc) HasField(path string) bool {
	_, ok := Resolve(d.source, path)
	return ok
}

// HasFieldOfKind reports whether path resolves to a value of the given kind.
func (d *Doc) HasFieldOfKind(path string, kind Kind) bool {
	v, ok := Resolve(d.source, path)
	return ok && KindOf(v) == kind
}

// Field returns the value at path, or an error wrapping ErrFieldNotFound.
func (d *Doc) Field(path string) (any, error) {
	v, ok := Resolve(d.source, path)
	if !ok {
		return nil, fmt.Errorf("doc: couldn't resolve field in path [%s]: %w", path, ErrFieldNotFound)
	}
	return v, nil
}

// FieldAs returns the value at path asserted to T.
func FieldAs[T any](d *Doc, path string) (T, error) {
	var zero T
	v, err := d.Field(path)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("doc: field [%s] is %s (%T): %w", path, KindOf(v), v, ErrWrongKind)
	}
	return t, nil
}

// AddField sets path to value, creating intermediate documents as needed.
// An intermediate segment that holds anything other than a nested document
// is overwritten with a new empty one.
func (d *Doc) AddField(path string, value any) {
	d.set(Tokenize(path), value)
}

func (d *Doc) set(segments []string, value any) {
	node := d.source
	last := len(segments) - 1
	for _, seg := range segments[:last] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segments[last]] = value
}

// RemoveField deletes the leaf at path. It reports false, leaving the
// document untouched, when path does not resolve.
func (d *Doc) RemoveField(path string) bool {
	segments := Tokenize(path)
	if _, ok := resolveSegments(d.source, segments); !ok {
		return false
	}
	node := d.source
	last := len(segments) - 1
	for _, seg := range segments[:last] {
		node = node[seg].(map[string]any)
	}
	delete(node, segments[last])
	return true
}

// RenameField moves the value at from to to. It reports false when from does
// not resolve.
func (d *Doc) RenameField(from, to string) bool {
	v, ok := Resolve(d.source, from)
	if !ok {
		return false
	}
	d.RemoveField(from)
	d.AddField(to, v)
	return true
}

// AppendList appends value to the list at path. A missing field becomes a
// new list and a non-list field becomes the first element of one. When value
// is itself a list its elements are appended individually.
func (d *Doc) AppendList(path string, value any) {
	segments := Tokenize(path)

	var list []any
	if current, ok := resolveSegments(d.source, segments); ok {
		if existing, isList := current.([]any); isList {
			list = existing
		} else {
			list = []any{current}
		}
	} else {
		list = []any{}
	}

	if items, ok := value.([]any); ok {
		list = append(list, items...)
	} else {
		list = append(list, value)
	}
	d.set(segments, list)
}

// RemoveFromList removes value from the list at path. A list value removes
// every occurrence of each of its elements; a single value removes its first
// occurrence. It reports whether path resolved to a list, whether or not
// anything was removed.
func (d *Doc) RemoveFromList(path string, value any) bool {
	segments := Tokenize(path)
	current, ok := resolveSegments(d.source, segments)
	if !ok {
		return false
	}
	list, ok := current.([]any)
	if !ok {
		return false
	}

	if values, isList := value.([]any); isList {
		list = slices.DeleteFunc(slices.Clone(list), func(item any) bool {
			return slices.ContainsFunc(values, func(v any) bool { return Equal(item, v) })
		})
	} else if i := slices.IndexFunc(list, func(item any) bool { return Equal(item, value) }); i >= 0 {
		list = slices.Delete(slices.Clone(list), i, i+1)
	}
	d.set(segments, list)
	return true
}

// Clone returns a deep copy of the document.
func (d *Doc) Clone() *Doc {
	return &Doc{source: cloneMap(d.source)}
}

func (d *Doc) String() string {
	return fmt.Sprintf("Doc{source=%v}", d.source)
}
