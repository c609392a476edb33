package repository

import "github.com/euskoog/openai-assistants-link/internal/domain"

// schema is applied in order on every start. {{ts}} is replaced with the
// dialect's timestamp column type.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS assistants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		instructions TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL DEFAULT 'CUSTOM',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_type ON categories(type, deleted_at)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS datasources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		type TEXT NOT NULL DEFAULT 'DOCUMENT',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE TABLE IF NOT EXISTS assistant_categories (
		id TEXT PRIMARY KEY,
		assistant_id TEXT REFERENCES assistants(id) ON DELETE SET NULL,
		category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assistant_categories_assistant ON assistant_categories(assistant_id)`,
	`CREATE TABLE IF NOT EXISTS assistant_datasources (
		id TEXT PRIMARY KEY,
		assistant_id TEXT REFERENCES assistants(id) ON DELETE SET NULL,
		datasource_id TEXT REFERENCES datasources(id) ON DELETE SET NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assistant_datasources_assistant ON assistant_datasources(assistant_id)`,
	`CREATE TABLE IF NOT EXISTS category_topics (
		id TEXT PRIMARY KEY,
		category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
		topic_id TEXT REFERENCES topics(id) ON DELETE SET NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_category_topics_category ON category_topics(category_id, topic_id)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		assistant_id TEXT NOT NULL REFERENCES assistants(id),
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_assistant ON conversations(assistant_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL DEFAULT 'USER',
		content TEXT NOT NULL,
		sent_at {{ts}} NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		conversation_id TEXT REFERENCES conversations(id) ON DELETE SET NULL,
		category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
		topic_id TEXT REFERENCES topics(id) ON DELETE SET NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL,
		deleted_at {{ts}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, sent_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_labels ON messages(category_id, topic_id)`,
}

func notFound(entity, id string) error {
	return &domain.NotFoundError{Entity: entity, ID: id}
}

func missingRef(entity, id string) error {
	return &domain.ReferenceError{Entity: entity, ID: id}
}
