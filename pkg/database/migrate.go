package database

import (
	"database/sql"
	"fmt"
)

func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user'
				CHECK (role IN ('user','uploader','admin')),
			avatar TEXT NOT NULL DEFAULT '',
			preferences TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS manga (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cover_image TEXT NOT NULL DEFAULT '',
			genres TEXT NOT NULL DEFAULT '[]', -- JSON array as text
			tags TEXT NOT NULL DEFAULT '[]',   -- JSON array as text
			author TEXT NOT NULL DEFAULT '',
			artist TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'ongoing'
				CHECK (status IN ('ongoing','completed','hiatus','cancelled')),
			rating REAL NOT NULL DEFAULT 0,
			views INTEGER NOT NULL DEFAULT 0,
			chapters_count INTEGER NOT NULL DEFAULT 0,
			owner_id TEXT NOT NULL REFERENCES users(id),
			is_deleted INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS chapters (
			id TEXT PRIMARY KEY,
			manga_id TEXT NOT NULL REFERENCES manga(id),
			chapter_number REAL NOT NULL,
			volume INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			pages TEXT NOT NULL, -- ordered JSON array of page objects
			page_count INTEGER NOT NULL,
			views INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (manga_id, chapter_number)
		);`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			manga_id TEXT NOT NULL REFERENCES manga(id),
			chapter_id TEXT REFERENCES chapters(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			parent_id TEXT REFERENCES comments(id),
			content TEXT NOT NULL,
			edited INTEGER NOT NULL DEFAULT 0,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS comment_reactions (
			comment_id TEXT NOT NULL REFERENCES comments(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			kind TEXT NOT NULL CHECK (kind IN ('like','dislike')),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (comment_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}', -- JSON payload
			is_read INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS user_favorites (
			user_id TEXT NOT NULL REFERENCES users(id),
			manga_id TEXT NOT NULL REFERENCES manga(id),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, manga_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_manga_owner ON manga(owner_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chapters_manga ON chapters(manga_id);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_manga ON comments(manga_id);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);`,
	}

	for i, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate stmt %d: %w", i, err)
		}
	}
	return nil
}
