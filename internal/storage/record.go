package storage

import "time"

// Record is the backend-neutral shape of a stored entity. Fields holds the
// entity payload without id or timestamp columns; count aggregates from
// ListWithCounts appear as int64 fields under their alias.
type Record struct {
	ID      RecordID
	Created time.Time
	Updated time.Time
	Fields  map[string]any
}

func (r *Record) String(key string) string {
	if s, ok := r.Fields[key].(string); ok {
		return s
	}
	return ""
}

func (r *Record) Int(key string) int64 {
	switch n := r.Fields[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func (r *Record) Bool(key string) bool {
	b, _ := r.Fields[key].(bool)
	return b
}

func (r *Record) Time(key string) time.Time {
	if t, ok := r.Fields[key].(time.Time); ok {
		return t
	}
	return time.Time{}
}

// StringSlice returns a JSON array field as strings, skipping non-string
// elements.
func (r *Record) StringSlice(key string) []string {
	switch v := r.Fields[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Vector returns a float32 vector field, or nil when absent. Records read
// from the relational backend carry vectors as raw blobs.
func (r *Record) Vector(key string) []float32 {
	switch v := r.Fields[key].(type) {
	case []float32:
		return v
	case []byte:
		vec, err := UnmarshalVector(v)
		if err != nil {
			return nil
		}
		return vec
	}
	return nil
}
