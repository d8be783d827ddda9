package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"ai-knowledgebase-be/internal/storage"
)

// entityModel is implemented by every gorm model so the driver can stay
// generic over collections.
type entityModel interface {
	setKey(uuid.UUID)
	namespace() string
	setNamespace(string)
	applyFields(fields map[string]any) error
	record() *storage.Record
}

type tableDesc struct {
	table    string
	newModel func() entityModel
	// columns maps filterable/orderable field names to column names.
	columns map[string]string
	// refs maps foreign-key fields to the collection their canonical id
	// must name.
	refs map[string]string
}

var tables = map[string]tableDesc{
	storage.CollectionNotebook: {
		table:    "notebooks",
		newModel: func() entityModel { return &Notebook{} },
		columns:  map[string]string{"name": "name", "archived": "archived"},
	},
	storage.CollectionSource: {
		table:    "sources",
		newModel: func() entityModel { return &Source{} },
		columns:  map[string]string{"title": "title"},
	},
	storage.CollectionNote: {
		table:    "notes",
		newModel: func() entityModel { return &Note{} },
		columns:  map[string]string{"title": "title", "note_type": "note_type"},
	},
	storage.CollectionSourceInsight: {
		table:    "source_insights",
		newModel: func() entityModel { return &SourceInsight{} },
		columns:  map[string]string{"source_id": "source_id", "insight_type": "insight_type"},
		refs:     map[string]string{"source_id": storage.CollectionSource},
	},
	storage.CollectionSourceEmbedding: {
		table:    "source_embeddings",
		newModel: func() entityModel { return &SourceEmbedding{} },
		columns:  map[string]string{"source_id": "source_id", "chunk_order": "chunk_order"},
		refs:     map[string]string{"source_id": storage.CollectionSource},
	},
	storage.CollectionChatSession: {
		table:    "chat_sessions",
		newModel: func() entityModel { return &ChatSession{} },
		columns:  map[string]string{"title": "title"},
	},
	storage.CollectionUser: {
		table:    "users",
		newModel: func() entityModel { return &User{} },
		columns:  map[string]string{"email": "email"},
	},
	storage.CollectionContentSettings: {
		table:    "content_settings",
		newModel: func() entityModel { return &ContentSettings{} },
		columns:  map[string]string{},
	},
}

func descFor(collection string) (tableDesc, error) {
	desc, ok := tables[collection]
	if !ok {
		return tableDesc{}, fmt.Errorf("%w: unknown collection %q", storage.ErrValidation, collection)
	}
	return desc, nil
}

func unknownField(collection, field string) error {
	return fmt.Errorf("%w: unknown field %q for %s", storage.ErrValidation, field, collection)
}

func wantString(field string, v any) (string, error) {
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q wants a string", storage.ErrValidation, field)
	}
	return s, nil
}

func wantBool(field string, v any) (bool, error) {
	if v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: field %q wants a bool", storage.ErrValidation, field)
	}
	return b, nil
}

func wantInt(field string, v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: field %q wants an integer", storage.ErrValidation, field)
}

func wantVector(field string, v any) (*pgvector.Vector, error) {
	switch vec := v.(type) {
	case nil:
		return nil, nil
	case []float32:
		pv := pgvector.NewVector(vec)
		return &pv, nil
	}
	return nil, fmt.Errorf("%w: field %q wants a float32 vector", storage.ErrValidation, field)
}

func wantRef(field, collection string, v any) (uuid.UUID, error) {
	var id storage.RecordID
	switch raw := v.(type) {
	case storage.RecordID:
		id = raw
	case string:
		parsed, err := storage.ParseID(raw)
		if err != nil {
			return uuid.Nil, err
		}
		id = parsed
	default:
		return uuid.Nil, fmt.Errorf("%w: field %q wants a record id", storage.ErrValidation, field)
	}
	if id.Collection != collection {
		return uuid.Nil, fmt.Errorf("%w: field %q wants a %s id, got %s", storage.ErrValidation, field, collection, id.Collection)
	}
	key, err := uuid.Parse(id.Key)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: non-uuid key in %q", storage.ErrMalformedID, id.String())
	}
	return key, nil
}

func wantJSON(field string, v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	enc, err := storage.EncodeField(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(enc), nil
}

func vectorField(v *pgvector.Vector) any {
	if v == nil {
		return nil
	}
	return v.Slice()
}

// Notebook

func (m *Notebook) setKey(k uuid.UUID)   { m.Id = k }
func (m *Notebook) namespace() string { return m.Namespace }
func (m *Notebook) setNamespace(ns string) { m.Namespace = ns }

func (m *Notebook) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "name":
			m.Name, err = wantString(k, v)
		case "description":
			m.Description, err = wantString(k, v)
		case "archived":
			m.Archived, err = wantBool(k, v)
		default:
			err = unknownField(storage.CollectionNotebook, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Notebook) record() *storage.Record {
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionNotebook, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields: map[string]any{
			"name":        m.Name,
			"description": m.Description,
			"archived":    m.Archived,
		},
	}
}

// Source

// sourceAsset is the nested shape stored in the JSONB asset column. The
// uniform field layer flattens it to asset_file_path / asset_url so both
// backends deserialize to the same logical entity.
type sourceAsset struct {
	FilePath string `json:"file_path,omitempty"`
	URL      string `json:"url,omitempty"`
}

func (m *Source) setKey(k uuid.UUID)     { m.Id = k }
func (m *Source) namespace() string { return m.Namespace }
func (m *Source) setNamespace(ns string) { m.Namespace = ns }

func (m *Source) asset() sourceAsset {
	var a sourceAsset
	if len(m.Asset) > 0 {
		_ = json.Unmarshal(m.Asset, &a)
	}
	return a
}

func (m *Source) setAsset(a sourceAsset) {
	if a == (sourceAsset{}) {
		m.Asset = nil
		return
	}
	raw, _ := json.Marshal(a)
	m.Asset = datatypes.JSON(raw)
}

func (m *Source) applyFields(fields map[string]any) error {
	asset := m.asset()
	for k, v := range fields {
		var err error
		switch k {
		case "title":
			m.Title, err = wantString(k, v)
		case "topics":
			m.Topics, err = wantJSON(k, v)
		case "full_text":
			m.FullText, err = wantString(k, v)
		case "asset_file_path":
			asset.FilePath, err = wantString(k, v)
		case "asset_url":
			asset.URL, err = wantString(k, v)
		default:
			err = unknownField(storage.CollectionSource, k)
		}
		if err != nil {
			return err
		}
	}
	m.setAsset(asset)
	return nil
}

func (m *Source) record() *storage.Record {
	fields := map[string]any{
		"title":     m.Title,
		"full_text": m.FullText,
	}
	if len(m.Topics) > 0 {
		fields["topics"] = storage.DecodeField(string(m.Topics))
	}
	if a := m.asset(); a.FilePath != "" || a.URL != "" {
		if a.FilePath != "" {
			fields["asset_file_path"] = a.FilePath
		}
		if a.URL != "" {
			fields["asset_url"] = a.URL
		}
	}
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionSource, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields:  fields,
	}
}

// Note

func (m *Note) setKey(k uuid.UUID)     { m.Id = k }
func (m *Note) namespace() string { return m.Namespace }
func (m *Note) setNamespace(ns string) { m.Namespace = ns }

func (m *Note) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "title":
			m.Title, err = wantString(k, v)
		case "content":
			m.Content, err = wantString(k, v)
		case "note_type":
			m.NoteType, err = wantString(k, v)
		case "embedding":
			m.Embedding, err = wantVector(k, v)
		default:
			err = unknownField(storage.CollectionNote, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Note) record() *storage.Record {
	fields := map[string]any{
		"title":     m.Title,
		"content":   m.Content,
		"note_type": m.NoteType,
	}
	if v := vectorField(m.Embedding); v != nil {
		fields["embedding"] = v
	}
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionNote, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields:  fields,
	}
}

// SourceInsight

func (m *SourceInsight) setKey(k uuid.UUID)     { m.Id = k }
func (m *SourceInsight) namespace() string { return m.Namespace }
func (m *SourceInsight) setNamespace(ns string) { m.Namespace = ns }

func (m *SourceInsight) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "source_id":
			m.SourceId, err = wantRef(k, storage.CollectionSource, v)
		case "insight_type":
			m.InsightType, err = wantString(k, v)
		case "content":
			m.Content, err = wantString(k, v)
		case "embedding":
			m.Embedding, err = wantVector(k, v)
		default:
			err = unknownField(storage.CollectionSourceInsight, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *SourceInsight) record() *storage.Record {
	fields := map[string]any{
		"source_id":    storage.NewID(storage.CollectionSource, m.SourceId.String()).String(),
		"insight_type": m.InsightType,
		"content":      m.Content,
	}
	if v := vectorField(m.Embedding); v != nil {
		fields["embedding"] = v
	}
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionSourceInsight, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields:  fields,
	}
}

// SourceEmbedding

func (m *SourceEmbedding) setKey(k uuid.UUID)     { m.Id = k }
func (m *SourceEmbedding) namespace() string { return m.Namespace }
func (m *SourceEmbedding) setNamespace(ns string) { m.Namespace = ns }

func (m *SourceEmbedding) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "source_id":
			m.SourceId, err = wantRef(k, storage.CollectionSource, v)
		case "chunk_order":
			m.ChunkOrder, err = wantInt(k, v)
		case "content":
			m.Content, err = wantString(k, v)
		case "embedding":
			m.Embedding, err = wantVector(k, v)
		default:
			err = unknownField(storage.CollectionSourceEmbedding, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *SourceEmbedding) record() *storage.Record {
	fields := map[string]any{
		"source_id":   storage.NewID(storage.CollectionSource, m.SourceId.String()).String(),
		"chunk_order": int64(m.ChunkOrder),
		"content":     m.Content,
	}
	if v := vectorField(m.Embedding); v != nil {
		fields["embedding"] = v
	}
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionSourceEmbedding, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields:  fields,
	}
}

// ChatSession

func (m *ChatSession) setKey(k uuid.UUID)     { m.Id = k }
func (m *ChatSession) namespace() string { return m.Namespace }
func (m *ChatSession) setNamespace(ns string) { m.Namespace = ns }

func (m *ChatSession) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "title":
			m.Title, err = wantString(k, v)
		case "description":
			m.Description, err = wantString(k, v)
		default:
			err = unknownField(storage.CollectionChatSession, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ChatSession) record() *storage.Record {
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionChatSession, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields: map[string]any{
			"title":       m.Title,
			"description": m.Description,
		},
	}
}

// User

func (m *User) setKey(k uuid.UUID)     { m.Id = k }
func (m *User) namespace() string { return m.Namespace }
func (m *User) setNamespace(ns string) { m.Namespace = ns }

func (m *User) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "name":
			m.Name, err = wantString(k, v)
		case "email":
			m.Email, err = wantString(k, v)
		case "password_hash":
			m.PasswordHash, err = wantString(k, v)
		default:
			err = unknownField(storage.CollectionUser, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *User) record() *storage.Record {
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionUser, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields: map[string]any{
			"name":          m.Name,
			"email":         m.Email,
			"password_hash": m.PasswordHash,
		},
	}
}

// ContentSettings

func (m *ContentSettings) setKey(k uuid.UUID)     { m.Id = k }
func (m *ContentSettings) namespace() string { return m.Namespace }
func (m *ContentSettings) setNamespace(ns string) { m.Namespace = ns }

func (m *ContentSettings) applyFields(fields map[string]any) error {
	for k, v := range fields {
		var err error
		switch k {
		case "default_content_processing_engine":
			m.DefaultContentProcessingEngine, err = wantString(k, v)
		case "default_embedding_option":
			m.DefaultEmbeddingOption, err = wantString(k, v)
		case "auto_delete_files":
			m.AutoDeleteFiles, err = wantString(k, v)
		default:
			err = unknownField(storage.CollectionContentSettings, k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ContentSettings) record() *storage.Record {
	return &storage.Record{
		ID:      storage.NewID(storage.CollectionContentSettings, m.Id.String()),
		Created: m.CreatedAt,
		Updated: m.UpdatedAt,
		Fields: map[string]any{
			"default_content_processing_engine": m.DefaultContentProcessingEngine,
			"default_embedding_option":          m.DefaultEmbeddingOption,
			"auto_delete_files":                 m.AutoDeleteFiles,
		},
	}
}
