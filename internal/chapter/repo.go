// Package chapter assembles and serves chapters: ordered page lists
// validated server-side and persisted together with the parent manga's
// chapter counter in one transaction.
package chapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mangavault/internal/manga"
	"mangavault/pkg/apierr"
	"mangavault/pkg/database"
	"mangavault/pkg/models"
)

// MaxPagesPerChapter bounds a single submission. Matches the client-side
// limit but is enforced here regardless of what the client does.
const MaxPagesPerChapter = 200

// PageInput is one already-uploaded page image in submission order.
// Width/height are optional; the proxied upload path fills them in.
type PageInput struct {
	ImageURL string `json:"image_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type AssembleInput struct {
	MangaID       string
	ChapterNumber float64
	Volume        int
	Title         string
	Pages         []PageInput
}

// Assemble validates the submission and persists the chapter. Page numbers
// are assigned here, 1..N in submission order; the client's own numbering,
// if any, is ignored. The insert and the parent counter increment share a
// transaction so concurrent submissions both land.
func Assemble(ctx context.Context, db *sql.DB, in AssembleInput) (models.Chapter, error) {
	pages, err := buildPages(in.Pages)
	if err != nil {
		return models.Chapter{}, err
	}
	if in.ChapterNumber < 0 {
		return models.Chapter{}, apierr.Validation("chapter number cannot be negative")
	}

	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return models.Chapter{}, err
	}

	ch := models.Chapter{
		ID:            uuid.NewString(),
		MangaID:       in.MangaID,
		ChapterNumber: in.ChapterNumber,
		Volume:        in.Volume,
		Title:         strings.TrimSpace(in.Title),
		Pages:         pages,
		PageCount:     len(pages),
		CreatedAt:     time.Now().UTC(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return models.Chapter{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := manga.IncrChapters(ctx, tx, in.MangaID); err != nil {
		return models.Chapter{}, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO chapters (id, manga_id, chapter_number, volume, title, pages, page_count, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		ch.ID, ch.MangaID, ch.ChapterNumber, ch.Volume, ch.Title, string(pagesJSON), ch.PageCount, ch.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.Chapter{}, apierr.Conflict("chapter number already exists for this manga")
		}
		return models.Chapter{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Chapter{}, err
	}
	return ch, nil
}

func buildPages(in []PageInput) ([]models.Page, error) {
	if len(in) == 0 {
		return nil, apierr.Validation("a chapter needs at least one page")
	}
	if len(in) > MaxPagesPerChapter {
		return nil, apierr.Validation("too many pages: %d (max %d)", len(in), MaxPagesPerChapter)
	}
	pages := make([]models.Page, 0, len(in))
	for i, p := range in {
		u, err := url.Parse(p.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apierr.Validation("page %d: invalid image url", i+1)
		}
		if p.Width < 0 || p.Height < 0 {
			return nil, apierr.Validation("page %d: negative dimensions", i+1)
		}
		pages = append(pages, models.Page{
			PageNumber: i + 1,
			ImageURL:   p.ImageURL,
			Width:      p.Width,
			Height:     p.Height,
		})
	}
	return pages, nil
}

// Get returns the chapter including its pages. The parent manga must not be
// soft-deleted.
func Get(ctx context.Context, db *sql.DB, id string) (models.Chapter, error) {
	var ch models.Chapter
	var pagesJSON string
	err := db.QueryRowContext(ctx, `
		SELECT c.id, c.manga_id, c.chapter_number, c.volume, c.title, c.pages,
		       c.page_count, c.views, c.created_at
		FROM chapters c
		JOIN manga m ON m.id = c.manga_id AND m.is_deleted = 0
		WHERE c.id = ?`, id).
		Scan(&ch.ID, &ch.MangaID, &ch.ChapterNumber, &ch.Volume, &ch.Title, &pagesJSON,
			&ch.PageCount, &ch.Views, &ch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chapter{}, apierr.NotFound("chapter")
	}
	if err != nil {
		return models.Chapter{}, err
	}
	if err := json.Unmarshal([]byte(pagesJSON), &ch.Pages); err != nil {
		return models.Chapter{}, err
	}
	return ch, nil
}

// BumpViews atomically increments the chapter's view counter.
func BumpViews(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE chapters SET views = views + 1 WHERE id = ?`, id)
	return err
}

// ListByManga returns chapter summaries (no pages) ordered by chapter
// number.
func ListByManga(ctx context.Context, db *sql.DB, mangaID string) ([]models.Chapter, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, manga_id, chapter_number, volume, title, page_count, views, created_at
		FROM chapters WHERE manga_id = ?
		ORDER BY chapter_number ASC`, mangaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Chapter{}
	for rows.Next() {
		var ch models.Chapter
		if err := rows.Scan(&ch.ID, &ch.MangaID, &ch.ChapterNumber, &ch.Volume, &ch.Title,
			&ch.PageCount, &ch.Views, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Delete removes the chapter and decrements the parent counter in one
// transaction. Page objects in storage are not reclaimed here.
func Delete(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var mangaID string
	err = tx.QueryRowContext(ctx, `SELECT manga_id FROM chapters WHERE id = ?`, id).Scan(&mangaID)
	if errors.Is(err, sql.ErrNoRows) {
		return apierr.NotFound("chapter")
	}
	if err != nil {
		return err
	}
	// Chapter comments survive but lose their chapter reference.
	if _, err := tx.ExecContext(ctx, `UPDATE comments SET chapter_id = NULL WHERE chapter_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chapters WHERE id = ?`, id); err != nil {
		return err
	}
	if err := manga.DecrChapters(ctx, tx, mangaID); err != nil {
		return err
	}
	return tx.Commit()
}
