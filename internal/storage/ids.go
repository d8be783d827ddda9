package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Collection names shared by both backends.
const (
	CollectionNotebook        = "notebook"
	CollectionSource          = "source"
	CollectionNote            = "note"
	CollectionSourceInsight   = "source_insight"
	CollectionSourceEmbedding = "source_embedding"
	CollectionChatSession     = "chat_session"
	CollectionUser            = "user"
	CollectionContentSettings = "content_settings"
)

// RecordID is the composite identifier of a stored entity. Key is an opaque
// string in the graph-style backend and the decimal form of a dense integer
// in the relational backend; callers treat it uniformly as a string.
type RecordID struct {
	Collection string
	Key        string
}

func NewID(collection, key string) RecordID {
	return RecordID{Collection: collection, Key: key}
}

// IntID builds a RecordID from an integer local key.
func IntID(collection string, key int64) RecordID {
	return RecordID{Collection: collection, Key: strconv.FormatInt(key, 10)}
}

// ParseID parses the canonical "collection:local-key" form. The key may
// itself contain colons; only the first separator is structural.
func ParseID(s string) (RecordID, error) {
	collection, key, found := strings.Cut(s, ":")
	if !found || collection == "" || key == "" {
		return RecordID{}, fmt.Errorf("%w: %q", ErrMalformedID, s)
	}
	return RecordID{Collection: collection, Key: key}, nil
}

// String renders the canonical form. ParseID(id.String()) round-trips for
// any id with a non-empty collection and key.
func (id RecordID) String() string {
	return id.Collection + ":" + id.Key
}

func (id RecordID) IsZero() bool {
	return id.Collection == "" && id.Key == ""
}

// IntKey returns the local key as an integer. Fails with ErrMalformedID
// when the key is not a decimal integer.
func (id RecordID) IntKey() (int64, error) {
	n, err := strconv.ParseInt(id.Key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric key in %q", ErrMalformedID, id.String())
	}
	return n, nil
}
