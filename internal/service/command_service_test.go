package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/executor"
)

func TestCommandSubmitDefers(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCommandService(env.exec, nil)

	res, err := svc.Submit(env.ctx, &dto.SubmitCommandRequest{Command: "rebuild_embeddings"})
	require.NoError(t, err)
	assert.Equal(t, executor.ModeDirect, res.Mode)
	require.Len(t, env.exec.calls, 1)
	assert.Equal(t, "rebuild_embeddings", env.exec.calls[0].command)
	assert.Empty(t, env.exec.syncTimeouts)
}

func TestCommandSubmitSyncWaitsWithCallerTimeout(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCommandService(env.exec, nil)

	res, err := svc.Submit(env.ctx, &dto.SubmitCommandRequest{
		Command:        "rebuild_embeddings",
		Sync:           true,
		TimeoutSeconds: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, executor.StatusCompleted, res.Status)
	require.Len(t, env.exec.syncTimeouts, 1)
	assert.Equal(t, 30*time.Second, env.exec.syncTimeouts[0])
}

func TestCommandSubmitSyncDefaultTimeout(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCommandService(env.exec, nil)

	_, err := svc.Submit(env.ctx, &dto.SubmitCommandRequest{Command: "rebuild_embeddings", Sync: true})
	require.NoError(t, err)
	require.Len(t, env.exec.syncTimeouts, 1)
	assert.Equal(t, syncTimeout, env.exec.syncTimeouts[0])
}
