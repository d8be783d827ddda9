package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDRoundTrip(t *testing.T) {
	cases := []struct {
		collection string
		key        string
	}{
		{"notebook", "42"},
		{"source", "9f0c2d1e-77aa-4c1b-9f55-0a1b2c3d4e5f"},
		{"note", "abc:def"},
		{"chat_session", "0"},
	}

	for _, tc := range cases {
		id := NewID(tc.collection, tc.key)
		parsed, err := ParseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, tc.collection, parsed.Collection)
		assert.Equal(t, tc.key, parsed.Key)
	}
}

func TestParseIDMalformed(t *testing.T) {
	for _, raw := range []string{"", "notebook", ":42", "notebook:", ":"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, ErrMalformedID, "input %q", raw)
	}
}

func TestIntKey(t *testing.T) {
	id := IntID("note", 17)
	n, err := id.IntKey()
	require.NoError(t, err)
	assert.Equal(t, int64(17), n)

	_, err = NewID("note", "not-a-number").IntKey()
	assert.ErrorIs(t, err, ErrMalformedID)
}
