package client

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ParamUpdatedAfter is the filter key that receives date normalization.
const ParamUpdatedAfter = "updated_after"

// dateLayout is the wire format the API expects for date filters.
const dateLayout = "2006-01-02"

// updatedAfterLayouts are the textual timestamp layouts accepted for the
// updated_after filter, tried in order.
var updatedAfterLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// NormalizeParams converts caller-supplied filter values into the
// string-to-string mapping sent as the query string. The second return
// value lists keys whose values could not be normalized and were dropped.
//
// Rules per key:
//   - updated_after: textual timestamps are parsed and reformatted as
//     YYYY-MM-DD, time.Time values are formatted directly, anything else
//     (including unparseable text) is dropped.
//   - slice or array values join their elements with commas.
//   - all other values pass through fmt.Sprint.
//
// A nil parameters map yields an empty mapping. Normalization is
// idempotent: running it over an already-normalized map returns the same
// mapping.
func NormalizeParams(params map[string]any) (map[string]string, []string) {
	normalized := make(map[string]string, len(params))
	var dropped []string

	for key, value := range params {
		if key == ParamUpdatedAfter {
			formatted, ok := normalizeUpdatedAfter(value)
			if !ok {
				dropped = append(dropped, key)
				continue
			}
			normalized[key] = formatted
			continue
		}

		if joined, ok := joinCollection(value); ok {
			normalized[key] = joined
			continue
		}

		normalized[key] = fmt.Sprint(value)
	}

	return normalized, dropped
}

// normalizeUpdatedAfter converts an updated_after value to YYYY-MM-DD.
// Returns false for values that cannot be interpreted as a date.
func normalizeUpdatedAfter(value any) (string, bool) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(dateLayout), true
	case string:
		for _, layout := range updatedAfterLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts.Format(dateLayout), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

// joinCollection joins slice or array elements with commas. Strings are
// not collections for this purpose.
func joinCollection(value any) (string, bool) {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return "", false
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", false
	}

	parts := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts[i] = fmt.Sprint(rv.Index(i).Interface())
	}
	return strings.Join(parts, ","), true
}
