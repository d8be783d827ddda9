package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationEndpoints(t *testing.T) {
	assert.NoError(t, RelationReference.ValidateEndpoints(CollectionSource, CollectionNotebook))
	assert.NoError(t, RelationArtifact.ValidateEndpoints(CollectionNote, CollectionNotebook))
	assert.NoError(t, RelationRefersTo.ValidateEndpoints(CollectionChatSession, CollectionNotebook))
	assert.NoError(t, RelationRefersTo.ValidateEndpoints(CollectionChatSession, CollectionSource))

	assert.ErrorIs(t, RelationReference.ValidateEndpoints(CollectionNote, CollectionNotebook), ErrValidation)
	assert.ErrorIs(t, RelationKind("owns").ValidateEndpoints(CollectionSource, CollectionNotebook), ErrValidation)
	assert.False(t, RelationKind("owns").Valid())
}
