package doc

import (
	"strconv"

	"github.com/crimson-sun/timber/internal/convert"
	"github.com/crimson-sun/timber/internal/jsonutil"
)

// JSONSuffix is appended to the flattened key of a nested document to hold
// its serialized form.
const JSONSuffix = "_logzio_json"

type flattenOptions struct {
	stringify func(any) string
	toJSON    func(any) string
	snapshot  bool
}

// FlattenOption configures Flatten.
type FlattenOption func(*flattenOptions)

// WithStringifier replaces the scalar rendering stored under every key.
// Default: convert.ToString.
func WithStringifier(f func(any) string) FlattenOption {
	return func(o *flattenOptions) { o.stringify = f }
}

// WithJSONEncoder replaces the serializer used for nested documents.
// Default: jsonutil.ToJSONString.
func WithJSONEncoder(f func(any) string) FlattenOption {
	return func(o *flattenOptions) { o.toJSON = f }
}

// WithSnapshot deep-copies list elements placed in the projection so later
// mutation of the document cannot be observed through it.
func WithSnapshot() FlattenOption {
	return func(o *flattenOptions) { o.snapshot = true }
}

// Flatten returns a new single-level projection of the document.
//
// Every key maps to the string rendering of its value. Lists additionally
// produce key.0..key.N plus key.first and key.last; nested documents produce
// key_logzio_json with their serialized form and are flattened under "key.".
// Keys are escaped so each one tokenizes back to its path.
func (d *Doc) Flatten(opts ...FlattenOption) map[string]any {
	o := flattenOptions{
		stringify: convert.ToString,
		toJSON:    jsonutil.ToJSONString,
	}
	for _, opt := range opts {
		opt(&o)
	}

	out := make(map[string]any, len(d.source)*2)
	o.flatten(out, "", d.source)
	return out
}

func (o *flattenOptions) flatten(out map[string]any, prefix string, node map[string]any) {
	for k, v := range node {
		key := prefix + Escape(k)
		out[key] = o.stringify(v)

		switch KindOf(v) {
		case KindList:
			o.flattenList(out, key+".", v.([]any))
		case KindMap:
			out[key+JSONSuffix] = o.toJSON(v)
			o.flatten(out, key+".", v.(map[string]any))
		}
	}
}

func (o *flattenOptions) flattenList(out map[string]any, prefix string, list []any) {
	if len(list) == 0 {
		return
	}
	for i, item := range list {
		if o.snapshot {
			item = cloneValue(item)
		}
		out[prefix+strconv.Itoa(i)] = item
	}
	out[prefix+"first"] = out[prefix+"0"]
	out[prefix+"last"] = out[prefix+strconv.Itoa(len(list)-1)]
}
