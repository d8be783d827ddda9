// Package service implements the domain operations on top of the
// storage driver: notebook and source lifecycles with their cascade
// rules, note management, chat sessions, search and authentication.
package service

import (
	"fmt"

	"ai-knowledgebase-be/internal/storage"
)

// parseCollectionID parses a caller-supplied id and pins its collection.
func parseCollectionID(raw, collection string) (storage.RecordID, error) {
	id, err := storage.ParseID(raw)
	if err != nil {
		return storage.RecordID{}, err
	}
	if id.Collection != collection {
		return storage.RecordID{}, fmt.Errorf("%w: expected a %s id, got %q", storage.ErrValidation, collection, raw)
	}
	return id, nil
}
