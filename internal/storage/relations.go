package storage

import "fmt"

// RelationKind is a typed, directed edge between two entities.
type RelationKind string

const (
	// RelationReference links a source to a notebook it belongs to.
	RelationReference RelationKind = "reference"
	// RelationArtifact links a note to its notebook.
	RelationArtifact RelationKind = "artifact"
	// RelationRefersTo links a chat session to a notebook or source it cites.
	RelationRefersTo RelationKind = "refers_to"
)

// relationEndpoints pins each kind to its allowed (source, target)
// collection pairs. Anything outside this table is a caller bug.
var relationEndpoints = map[RelationKind][][2]string{
	RelationReference: {{CollectionSource, CollectionNotebook}},
	RelationArtifact:  {{CollectionNote, CollectionNotebook}},
	RelationRefersTo: {
		{CollectionChatSession, CollectionNotebook},
		{CollectionChatSession, CollectionSource},
	},
}

func (k RelationKind) Valid() bool {
	_, ok := relationEndpoints[k]
	return ok
}

// ValidateEndpoints checks that the given collections are a legal pair for
// this relation kind, in the stored direction.
func (k RelationKind) ValidateEndpoints(sourceCollection, targetCollection string) error {
	pairs, ok := relationEndpoints[k]
	if !ok {
		return fmt.Errorf("%w: unknown relation kind %q", ErrValidation, string(k))
	}
	for _, p := range pairs {
		if p[0] == sourceCollection && p[1] == targetCollection {
			return nil
		}
	}
	return fmt.Errorf("%w: relation %q does not link %s to %s",
		ErrValidation, string(k), sourceCollection, targetCollection)
}
