package storage

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 3, 768, 1536, 4096} {
		v := make([]float32, n)
		for i := range v {
			v[i] = rng.Float32()*2 - 1
		}
		got, err := UnmarshalVector(MarshalVector(v))
		require.NoError(t, err)
		assert.Equal(t, v, got, "dimension %d", n)
	}
}

func TestVectorRoundTripSpecialValues(t *testing.T) {
	v := []float32{0, float32(math.Copysign(0, -1)), float32(math.Inf(1)), float32(math.Inf(-1)), math.MaxFloat32, math.SmallestNonzeroFloat32}
	got, err := UnmarshalVector(MarshalVector(v))
	require.NoError(t, err)
	for i := range v {
		assert.Equal(t, math.Float32bits(v[i]), math.Float32bits(got[i]))
	}
}

func TestUnmarshalVectorBadLength(t *testing.T) {
	_, err := UnmarshalVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCosineSimilarity(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5}

	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	assert.Zero(t, CosineSimilarity(v, []float32{0, 0, 0}))
	assert.Zero(t, CosineSimilarity(v, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestFieldCodecTimestamps(t *testing.T) {
	ts := time.Date(2025, 6, 3, 10, 30, 0, 123456000, time.UTC)
	enc, err := EncodeField(ts)
	require.NoError(t, err)

	dec, ok := DecodeField(enc).(time.Time)
	require.True(t, ok)
	assert.True(t, ts.Equal(dec))
}

func TestFieldCodecJSON(t *testing.T) {
	enc, err := EncodeField(map[string]any{"topics": []any{"a", "b"}})
	require.NoError(t, err)

	dec, ok := DecodeField(enc).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, dec["topics"])

	enc, err = EncodeField("plain text")
	require.NoError(t, err)
	assert.Equal(t, "plain text", DecodeField(enc))
}
