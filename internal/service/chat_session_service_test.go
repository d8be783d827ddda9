package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/storage"
)

func TestChatSessionReferences(t *testing.T) {
	env := newTestEnv(t)
	sessions := NewChatSessionService(env.driver)

	nb := env.createNotebook(t, "project")
	src := env.createSource(t, nb.Id, "paper", "")

	sess, err := sessions.Create(env.ctx, &dto.CreateChatSessionRequest{Title: "planning", NotebookId: nb.Id})
	require.NoError(t, err)

	require.NoError(t, sessions.AddReference(env.ctx, &dto.AddChatReferenceRequest{
		SessionId: sess.Id, TargetId: src.Id,
	}))

	refs, err := sessions.ListReferences(env.ctx, sess.Id)
	require.NoError(t, err)
	require.Len(t, refs.Notebooks, 1)
	require.Len(t, refs.Sources, 1)
	assert.Equal(t, nb.Id, refs.Notebooks[0].Id)
	assert.Equal(t, src.Id, refs.Sources[0].Id)
	assert.Empty(t, refs.Sources[0].FullText)

	require.NoError(t, sessions.RemoveReference(env.ctx, &dto.AddChatReferenceRequest{
		SessionId: sess.Id, TargetId: src.Id,
	}))
	refs, err = sessions.ListReferences(env.ctx, sess.Id)
	require.NoError(t, err)
	assert.Empty(t, refs.Sources)
}

func TestChatSessionRejectsNoteReference(t *testing.T) {
	env := newTestEnv(t)
	sessions := NewChatSessionService(env.driver)

	nb := env.createNotebook(t, "nb")
	note, err := env.notes.Create(env.ctx, &dto.CreateNoteRequest{NotebookId: nb.Id, Title: "n"})
	require.NoError(t, err)

	sess, err := sessions.Create(env.ctx, &dto.CreateChatSessionRequest{Title: "s"})
	require.NoError(t, err)

	err = sessions.AddReference(env.ctx, &dto.AddChatReferenceRequest{
		SessionId: sess.Id, TargetId: note.Id,
	})
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestChatSessionDeleteUnlinksTargets(t *testing.T) {
	env := newTestEnv(t)
	sessions := NewChatSessionService(env.driver)

	nb := env.createNotebook(t, "nb")
	sess, err := sessions.Create(env.ctx, &dto.CreateChatSessionRequest{Title: "s", NotebookId: nb.Id})
	require.NoError(t, err)

	require.NoError(t, sessions.Delete(env.ctx, sess.Id))
	_, err = sessions.ListReferences(env.ctx, sess.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// The notebook itself is untouched.
	_, err = env.notebooks.Show(env.ctx, nb.Id)
	require.NoError(t, err)
}

func TestContentSettingsSingleton(t *testing.T) {
	env := newTestEnv(t)
	settings := NewContentSettingsService(env.driver, "1")

	initial, err := settings.Get(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, initial.DefaultEmbeddingOption)

	updated, err := settings.Update(env.ctx, &dto.UpdateContentSettingsRequest{
		DefaultEmbeddingOption: "gemini",
		AutoDeleteFiles:        "true",
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", updated.DefaultEmbeddingOption)

	again, err := settings.Get(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, "gemini", again.DefaultEmbeddingOption)
	assert.Equal(t, "true", again.AutoDeleteFiles)
	assert.Equal(t, updated.Id, again.Id)
}
