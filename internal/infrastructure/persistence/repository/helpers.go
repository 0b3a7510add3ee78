package repository

import (
	"database/sql"
	"strings"
)

// placeholders returns "?, ?, ?" for n bind parameters
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func upperAll(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
