package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type Notebook struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace   string    `gorm:"type:varchar(64);not null;index"`
	Name        string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Archived    bool      `gorm:"default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Notebook) TableName() string {
	return "notebooks"
}

type Source struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace string    `gorm:"type:varchar(64);not null;index"`
	Title     string    `gorm:"type:varchar(512)"`
	Topics    datatypes.JSON
	FullText  string `gorm:"type:text"`
	// Asset keeps the file pointer as one nested object, {file_path, url}.
	Asset     datatypes.JSON
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Source) TableName() string {
	return "sources"
}

type Note struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace string    `gorm:"type:varchar(64);not null;index"`
	Title     string    `gorm:"type:varchar(512)"`
	Content   string    `gorm:"type:text"`
	NoteType  string    `gorm:"type:varchar(32);default:'human'"`
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Note) TableName() string {
	return "notes"
}

type SourceInsight struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace   string    `gorm:"type:varchar(64);not null;index"`
	SourceId    uuid.UUID `gorm:"type:uuid;not null;index"`
	InsightType string    `gorm:"type:varchar(64)"`
	Content     string    `gorm:"type:text"`
	Embedding   *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (SourceInsight) TableName() string {
	return "source_insights"
}

type SourceEmbedding struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_source_embedding_order"`
	SourceId   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_source_embedding_order"`
	ChunkOrder int       `gorm:"not null;uniqueIndex:ux_source_embedding_order"`
	Content    string    `gorm:"type:text"`
	Embedding  *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (SourceEmbedding) TableName() string {
	return "source_embeddings"
}

type ChatSession struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace   string    `gorm:"type:varchar(64);not null;index"`
	Title       string    `gorm:"type:varchar(255)"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

type User struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace    string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_email"`
	Name         string    `gorm:"type:varchar(255)"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_user_email"`
	PasswordHash string    `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type ContentSettings struct {
	Id                             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace                      string    `gorm:"type:varchar(64);not null;index"`
	DefaultContentProcessingEngine string    `gorm:"type:varchar(64)"`
	DefaultEmbeddingOption         string    `gorm:"type:varchar(64)"`
	AutoDeleteFiles                string    `gorm:"type:varchar(16)"`
	CreatedAt                      time.Time `gorm:"autoCreateTime"`
	UpdatedAt                      time.Time `gorm:"autoUpdateTime"`
}

func (ContentSettings) TableName() string {
	return "content_settings"
}

// Edge tables. The composite unique index backs idempotent relate via
// ON CONFLICT DO NOTHING.

type SourceNotebook struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_source_notebook"`
	SourceId   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_source_notebook"`
	NotebookId uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_source_notebook"`
}

func (SourceNotebook) TableName() string {
	return "source_notebooks"
}

type NoteNotebook struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_note_notebook"`
	NoteId     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_note_notebook"`
	NotebookId uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_note_notebook"`
}

func (NoteNotebook) TableName() string {
	return "note_notebooks"
}

type ChatSessionReference struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Namespace        string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_chat_session_reference"`
	ChatSessionId    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_chat_session_reference"`
	TargetCollection string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_chat_session_reference"`
	TargetId         uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_session_reference_target;uniqueIndex:ux_chat_session_reference"`
}

func (ChatSessionReference) TableName() string {
	return "chat_session_references"
}

// AllModels lists every table for migrations.
func AllModels() []any {
	return []any{
		&Notebook{}, &Source{}, &Note{}, &SourceInsight{}, &SourceEmbedding{},
		&ChatSession{}, &User{}, &ContentSettings{},
		&SourceNotebook{}, &NoteNotebook{}, &ChatSessionReference{},
	}
}
