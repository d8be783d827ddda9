package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"ai-knowledgebase-be/internal/storage"
)

type colKind int

const (
	colText colKind = iota
	colInt
	colBool
	colJSON
	colVector
	colRef
)

type colDef struct {
	kind colKind
	// ref is the target collection of a foreign-key column; the field
	// value is the canonical id string, the stored value its integer key.
	ref string
}

type tableDef struct {
	// fields in declaration order, matching schema.sql.
	fields []string
	cols   map[string]colDef
}

// tableDefs maps each collection to its column layout. Sub-objects from
// the graph backend (a source's asset) are flattened into sibling columns
// here; the mapper layer reassembles them.
var tableDefs = map[string]tableDef{
	storage.CollectionNotebook: {
		fields: []string{"name", "description", "archived"},
		cols: map[string]colDef{
			"name":        {kind: colText},
			"description": {kind: colText},
			"archived":    {kind: colBool},
		},
	},
	storage.CollectionSource: {
		fields: []string{"title", "topics", "full_text", "asset_file_path", "asset_url"},
		cols: map[string]colDef{
			"title":           {kind: colText},
			"topics":          {kind: colJSON},
			"full_text":       {kind: colText},
			"asset_file_path": {kind: colText},
			"asset_url":       {kind: colText},
		},
	},
	storage.CollectionNote: {
		fields: []string{"title", "content", "note_type", "embedding"},
		cols: map[string]colDef{
			"title":     {kind: colText},
			"content":   {kind: colText},
			"note_type": {kind: colText},
			"embedding": {kind: colVector},
		},
	},
	storage.CollectionSourceInsight: {
		fields: []string{"source_id", "insight_type", "content", "embedding"},
		cols: map[string]colDef{
			"source_id":    {kind: colRef, ref: storage.CollectionSource},
			"insight_type": {kind: colText},
			"content":      {kind: colText},
			"embedding":    {kind: colVector},
		},
	},
	storage.CollectionSourceEmbedding: {
		fields: []string{"source_id", "chunk_order", "content", "embedding"},
		cols: map[string]colDef{
			"source_id":   {kind: colRef, ref: storage.CollectionSource},
			"chunk_order": {kind: colInt},
			"content":     {kind: colText},
			"embedding":   {kind: colVector},
		},
	},
	storage.CollectionChatSession: {
		fields: []string{"title", "description"},
		cols: map[string]colDef{
			"title":       {kind: colText},
			"description": {kind: colText},
		},
	},
	storage.CollectionUser: {
		fields: []string{"name", "email", "password_hash"},
		cols: map[string]colDef{
			"name":          {kind: colText},
			"email":         {kind: colText},
			"password_hash": {kind: colText},
		},
	},
	storage.CollectionContentSettings: {
		fields: []string{"default_content_processing_engine", "default_embedding_option", "auto_delete_files"},
		cols: map[string]colDef{
			"default_content_processing_engine": {kind: colText},
			"default_embedding_option":          {kind: colText},
			"auto_delete_files":                 {kind: colText},
		},
	},
}

func tableFor(collection string) (tableDef, error) {
	def, ok := tableDefs[collection]
	if !ok {
		return tableDef{}, fmt.Errorf("%w: unknown collection %q", storage.ErrValidation, collection)
	}
	return def, nil
}

// quoteIdent wraps a table name; "user" is a keyword in some dialects and
// quoting uniformly costs nothing.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// encodeValue converts a field value to its column representation.
func (def tableDef) encodeValue(field string, v any) (any, error) {
	col, ok := def.cols[field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", storage.ErrValidation, field)
	}
	if v == nil {
		return nil, nil
	}
	switch col.kind {
	case colText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants a string", storage.ErrValidation, field)
		}
		return s, nil
	case colInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			return int64(n), nil
		}
		return nil, fmt.Errorf("%w: field %q wants an integer", storage.ErrValidation, field)
	case colBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: field %q wants a bool", storage.ErrValidation, field)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case colJSON:
		enc, err := storage.EncodeField(v)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case colVector:
		switch vec := v.(type) {
		case []float32:
			return storage.MarshalVector(vec), nil
		case []byte:
			return vec, nil
		}
		return nil, fmt.Errorf("%w: field %q wants a float32 vector", storage.ErrValidation, field)
	case colRef:
		var id storage.RecordID
		switch raw := v.(type) {
		case storage.RecordID:
			id = raw
		case string:
			parsed, err := storage.ParseID(raw)
			if err != nil {
				return nil, err
			}
			id = parsed
		default:
			return nil, fmt.Errorf("%w: field %q wants a record id", storage.ErrValidation, field)
		}
		if id.Collection != col.ref {
			return nil, fmt.Errorf("%w: field %q wants a %s id, got %s", storage.ErrValidation, field, col.ref, id.Collection)
		}
		return id.IntKey()
	}
	return nil, fmt.Errorf("%w: field %q has no codec", storage.ErrValidation, field)
}

// scanRecord reads one row produced by selectClause into a Record.
func (def tableDef) scanRecord(collection string, rows *sql.Rows, extraAliases []string) (*storage.Record, error) {
	var (
		key              int64
		created, updated string
	)
	dest := []any{&key, &created, &updated}

	holders := make([]any, len(def.fields))
	for i := range def.fields {
		holders[i] = new(sql.Null[any])
		dest = append(dest, holders[i])
	}
	extras := make([]int64, len(extraAliases))
	for i := range extraAliases {
		dest = append(dest, &extras[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, mapErr(err)
	}

	rec := &storage.Record{
		ID:      storage.IntID(collection, key),
		Created: parseTime(created),
		Updated: parseTime(updated),
		Fields:  make(map[string]any, len(def.fields)+len(extraAliases)),
	}
	for i, field := range def.fields {
		raw := holders[i].(*sql.Null[any])
		if !raw.Valid || raw.V == nil {
			continue
		}
		v, err := def.decodeValue(field, raw.V)
		if err != nil {
			return nil, err
		}
		if v != nil {
			rec.Fields[field] = v
		}
	}
	for i, alias := range extraAliases {
		rec.Fields[alias] = extras[i]
	}
	return rec, nil
}

func (def tableDef) decodeValue(field string, raw any) (any, error) {
	col := def.cols[field]
	switch col.kind {
	case colText:
		return asString(raw), nil
	case colInt:
		return asInt(raw), nil
	case colBool:
		return asInt(raw) != 0, nil
	case colJSON:
		return storage.DecodeField(asString(raw)), nil
	case colVector:
		b, ok := raw.([]byte)
		if !ok || len(b) == 0 {
			return nil, nil
		}
		return storage.UnmarshalVector(b)
	case colRef:
		return storage.IntID(col.ref, asInt(raw)).String(), nil
	}
	return raw, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		var out int64
		fmt.Sscan(n, &out)
		return out
	}
	return 0
}

// selectClause lists id, timestamps and the entity columns, prefixed with
// the given table alias when non-empty.
func (def tableDef) selectClause(alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	parts := []string{prefix + "id", prefix + "created", prefix + "updated"}
	for _, f := range def.fields {
		parts = append(parts, prefix+f)
	}
	return strings.Join(parts, ", ")
}
