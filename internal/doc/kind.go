package doc

import "encoding/json"

// Kind is the variant tag of a document value.
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindNull:    "null",
	KindString:  "string",
	KindNumber:  "number",
	KindBool:    "bool",
	KindList:    "list",
	KindMap:     "map",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// ParseKind maps a kind name ("string", "number", "list", ...) to a Kind.
// Unknown names return KindUnknown.
func ParseKind(s string) Kind {
	for k, name := range kindNames {
		if name == s {
			return Kind(k)
		}
	}
	switch s {
	case "object", "nested":
		return KindMap
	case "array":
		return KindList
	case "boolean":
		return KindBool
	case "int", "long", "float", "double":
		return KindNumber
	}
	return KindUnknown
}

// KindOf reports the variant of v. Lists must be []any and nested documents
// map[string]any; any other composite type is KindUnknown.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBool
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return KindNumber
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	default:
		return KindUnknown
	}
}
