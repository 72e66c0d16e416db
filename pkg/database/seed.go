package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"mangavault/pkg/models"
)

// SeedEntry is the on-disk shape produced by cmd/tools/fetch-anilist.
type SeedEntry struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	CoverImage    string   `json:"cover_image"`
	Genres        []string `json:"genres"`
	Tags          []string `json:"tags"`
	Author        string   `json:"author"`
	Artist        string   `json:"artist"`
	Status        string   `json:"status"`
	TotalChapters int      `json:"total_chapters"`
}

func LoadSeedFile(jsonPath string) ([]SeedEntry, error) {
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read seed json: %w", err)
	}

	var list []SeedEntry
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("unmarshal seed json: %w", err)
	}
	return list, nil
}

// SeedManga inserts the seed entries under ownerID, skipping titles that
// already exist. Returns the number of rows actually inserted.
func SeedManga(db *sql.DB, list []SeedEntry, ownerID string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO manga (id, title, description, cover_image, genres, tags, author, artist, status, owner_id)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM manga WHERE title = ? AND is_deleted = 0);
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert manga: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range list {
		status := e.Status
		if !models.IsValidMangaStatus(status) {
			status = string(models.StatusOngoing)
		}
		genresJSON, err := json.Marshal(e.Genres)
		if err != nil {
			return 0, fmt.Errorf("marshal genres for %q: %w", e.Title, err)
		}
		tagsJSON, err := json.Marshal(e.Tags)
		if err != nil {
			return 0, fmt.Errorf("marshal tags for %q: %w", e.Title, err)
		}

		res, err := stmt.Exec(uuid.NewString(), e.Title, e.Description, e.CoverImage,
			string(genresJSON), string(tagsJSON), e.Author, e.Artist, status, ownerID, e.Title)
		if err != nil {
			return 0, fmt.Errorf("insert manga %q: %w", e.Title, err)
		}
		aff, _ := res.RowsAffected()
		if aff > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}
