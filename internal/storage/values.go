package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// MarshalVector encodes a float32 vector as packed IEEE-754 single
// precision, little-endian, four bytes per element.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// UnmarshalVector is the exact inverse of MarshalVector. The round-trip
// preserves every bit, including NaN payloads and signed zeros.
func UnmarshalVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob length %d not a multiple of 4", ErrValidation, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|). Returns 0 when either
// vector has zero magnitude or when the lengths differ, so callers can
// filter silently instead of failing a whole search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EncodeField serializes an arbitrary field value for a scalar column.
// Timestamps become RFC 3339 strings instead of JSON objects so both
// backends store the same textual form.
func EncodeField(v any) (string, error) {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return string(raw), nil
}

// DecodeField reverses EncodeField. Timestamp strings come back as
// time.Time; everything else is decoded as JSON, falling back to the raw
// string for legacy unquoted values.
func DecodeField(s string) any {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
