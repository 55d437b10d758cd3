// Package duckdb provides utilities for working with DuckDB data types and
// formats used by the report store.
package duckdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Int64ArrayToString converts []int64 to DuckDB array literal format.
// Example: [1, 2, 3] -> "[1, 2, 3]"
// This format is required for inserting into BIGINT[] columns, which the
// driver cannot bind as placeholders.
func Int64ArrayToString(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}

	var sb strings.Builder
	sb.WriteString("[")
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(id, 10))
	}
	sb.WriteString("]")
	return sb.String()
}

// ParseInt64Array parses a DuckDB array literal like "[1, 2, 3]" back into
// []int64.
func ParseInt64Array(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("not an array literal: %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []int64{}, nil
	}

	parts := strings.Split(body, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad array element %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// ToInt64Array converts a scanned DuckDB array value to []int64. The driver
// returns BIGINT[] columns as []interface{}; older rows may come back as a
// string literal.
func ToInt64Array(val interface{}) ([]int64, error) {
	if val == nil {
		return nil, nil
	}

	arr, ok := val.([]interface{})
	if !ok {
		if str, ok := val.(string); ok {
			return ParseInt64Array(str)
		}
		return nil, fmt.Errorf("unexpected type for array: %T", val)
	}

	ids := make([]int64, len(arr))
	for i, elem := range arr {
		switch v := elem.(type) {
		case int64:
			ids[i] = v
		case int32:
			ids[i] = int64(v)
		case int:
			ids[i] = int64(v)
		case float64:
			ids[i] = int64(v)
		default:
			return nil, fmt.Errorf("unexpected array element type: %T", elem)
		}
	}
	return ids, nil
}
