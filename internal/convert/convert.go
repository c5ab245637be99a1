// Package convert renders document values as strings.
package convert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/crimson-sun/timber/internal/jsonutil"
)

// ToString renders any document value as a string. Strings are returned
// unchanged, nil becomes "", lists and nested documents become compact JSON.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []any, map[string]any:
		return jsonutil.ToJSONString(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
