package manga

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mangavault/pkg/apierr"
	"mangavault/pkg/models"
)

type CreateInput struct {
	Title       string
	Description string
	CoverImage  string
	Genres      []string
	Tags        []string
	Author      string
	Artist      string
	Status      string
	OwnerID     string
}

func Create(ctx context.Context, db *sql.DB, in CreateInput) (models.Manga, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Manga{}, apierr.Validation("title is required")
	}
	if in.Status == "" {
		in.Status = string(models.StatusOngoing)
	}
	if !models.IsValidMangaStatus(in.Status) {
		return models.Manga{}, apierr.Validation("invalid status %q", in.Status)
	}

	m := models.Manga{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		CoverImage:  in.CoverImage,
		Genres:      normalizeList(in.Genres),
		Tags:        normalizeList(in.Tags),
		Author:      in.Author,
		Artist:      in.Artist,
		Status:      in.Status,
		OwnerID:     in.OwnerID,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO manga (id, title, description, cover_image, genres, tags,
		                   author, artist, status, owner_id, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Title, m.Description, m.CoverImage, encodeList(m.Genres), encodeList(m.Tags),
		m.Author, m.Artist, m.Status, m.OwnerID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return models.Manga{}, err
	}
	return m, nil
}

const mangaCols = `id, title, description, cover_image, genres, tags,
	author, artist, status, rating, views, chapters_count,
	owner_id, created_at, updated_at`

// GetByID returns a non-deleted manga or apierr.NotFound.
func GetByID(ctx context.Context, db *sql.DB, id string) (models.Manga, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+mangaCols+` FROM manga WHERE id = ? AND is_deleted = 0`, id)
	m, err := scanOne(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Manga{}, apierr.NotFound("manga")
	}
	return m, err
}

// BumpViews atomically increments the view counter. Lost-update-free under
// concurrent readers.
func BumpViews(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE manga SET views = views + 1 WHERE id = ? AND is_deleted = 0`, id)
	return err
}

type UpdateInput struct {
	Title       *string
	Description *string
	CoverImage  *string
	Genres      []string
	Tags        []string
	Author      *string
	Artist      *string
	Status      *string
	Rating      *float64
}

func Update(ctx context.Context, db *sql.DB, id string, in UpdateInput) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return apierr.Validation("title cannot be empty")
		}
		add("title", strings.TrimSpace(*in.Title))
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.CoverImage != nil {
		add("cover_image", *in.CoverImage)
	}
	if in.Genres != nil {
		add("genres", encodeList(normalizeList(in.Genres)))
	}
	if in.Tags != nil {
		add("tags", encodeList(normalizeList(in.Tags)))
	}
	if in.Author != nil {
		add("author", *in.Author)
	}
	if in.Artist != nil {
		add("artist", *in.Artist)
	}
	if in.Status != nil {
		if !models.IsValidMangaStatus(*in.Status) {
			return apierr.Validation("invalid status %q", *in.Status)
		}
		add("status", *in.Status)
	}
	if in.Rating != nil {
		if *in.Rating < 0 || *in.Rating > 5 {
			return apierr.Validation("rating must be between 0 and 5")
		}
		add("rating", *in.Rating)
	}

	args = append(args, id)
	res, err := db.ExecContext(ctx,
		`UPDATE manga SET `+strings.Join(sets, ", ")+` WHERE id = ? AND is_deleted = 0`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("manga")
	}
	return nil
}

// SoftDelete hides the manga from all reads. Chapters and comments stay in
// place but become unreachable through the API.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE manga SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("manga")
	}
	return nil
}

// IncrChapters / DecrChapters keep the denormalized chapter counter in step
// via atomic in-place arithmetic.
func IncrChapters(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE manga SET chapters_count = chapters_count + 1,
		                 updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("manga")
	}
	return nil
}

func DecrChapters(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE manga SET chapters_count = MAX(chapters_count - 1, 0),
		                 updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_deleted = 0`, id)
	return err
}

// Sort keys accepted by List.
var sortColumns = map[string]string{
	"createdAt":     "m.created_at",
	"updatedAt":     "m.updated_at",
	"views":         "m.views",
	"title":         "m.title COLLATE NOCASE",
	"latestChapter": "(SELECT MAX(c.created_at) FROM chapters c WHERE c.manga_id = m.id)",
}

type ListParams struct {
	Query     string // matches title or author, case-insensitive
	Status    string
	Genre     string
	Tag       string
	OwnerID   string
	SortBy    string // key of sortColumns; default createdAt
	SortOrder string // asc|desc; default desc
	Page      int    // 1-based
	Limit     int    // capped at MaxLimit
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

func (p *ListParams) normalize() error {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.SortBy == "" {
		p.SortBy = "createdAt"
	}
	if _, ok := sortColumns[p.SortBy]; !ok {
		return apierr.Validation("unknown sort key %q", p.SortBy)
	}
	switch p.SortOrder {
	case "":
		p.SortOrder = "desc"
	case "asc", "desc":
	default:
		return apierr.Validation("sort order must be asc or desc")
	}
	if p.Status != "" && !models.IsValidMangaStatus(p.Status) {
		return apierr.Validation("invalid status %q", p.Status)
	}
	return nil
}

// List returns one page of non-deleted manga plus pagination metadata.
// Offset pagination is the contract; callers page with (page, limit).
func List(ctx context.Context, db *sql.DB, p ListParams) ([]models.Manga, models.Pagination, error) {
	if err := p.normalize(); err != nil {
		return nil, models.Pagination{}, err
	}

	where := []string{"m.is_deleted = 0"}
	args := []any{}

	if p.Query != "" {
		where = append(where, "(m.title LIKE ? OR m.author LIKE ?)")
		q := "%" + p.Query + "%"
		args = append(args, q, q)
	}
	if p.Status != "" {
		where = append(where, "m.status = ?")
		args = append(args, p.Status)
	}
	if p.Genre != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(m.genres) WHERE value = ?)")
		args = append(args, p.Genre)
	}
	if p.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(m.tags) WHERE value = ?)")
		args = append(args, p.Tag)
	}
	if p.OwnerID != "" {
		where = append(where, "m.owner_id = ?")
		args = append(args, p.OwnerID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM manga m WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, models.Pagination{}, err
	}

	order := fmt.Sprintf("%s %s", sortColumns[p.SortBy], strings.ToUpper(p.SortOrder))
	offset := (p.Page - 1) * p.Limit
	rows, err := db.QueryContext(ctx, `
		SELECT m.id, m.title, m.description, m.cover_image, m.genres, m.tags,
		       m.author, m.artist, m.status, m.rating, m.views, m.chapters_count,
		       m.owner_id, m.created_at, m.updated_at
		FROM manga m
		WHERE `+cond+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?`, append(args, p.Limit, offset)...)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	defer rows.Close()

	out := []models.Manga{}
	for rows.Next() {
		m, err := scanRow(rows)
		if err != nil {
			return nil, models.Pagination{}, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Pagination{}, err
	}
	return out, models.NewPagination(total, p.Page, p.Limit), nil
}

// Facets lists distinct genres or tags with usage counts over non-deleted
// manga, most used first.
func Facets(ctx context.Context, db *sql.DB, column string) ([]models.Facet, error) {
	if column != "genres" && column != "tags" {
		return nil, apierr.Validation("unknown facet %q", column)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT j.value, COUNT(*)
		FROM manga m, json_each(m.`+column+`) j
		WHERE m.is_deleted = 0
		GROUP BY j.value
		ORDER BY COUNT(*) DESC, j.value ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Facet{}
	for rows.Next() {
		var f models.Facet
		if err := rows.Scan(&f.Name, &f.Count); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (models.Manga, error) {
	var m models.Manga
	var genres, tags string
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.CoverImage, &genres, &tags,
		&m.Author, &m.Artist, &m.Status, &m.Rating, &m.Views, &m.ChaptersCount,
		&m.OwnerID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return models.Manga{}, err
	}
	m.Genres = decodeList(genres)
	m.Tags = decodeList(tags)
	return m, nil
}

func scanRow(rows *sql.Rows) (models.Manga, error) {
	return scanOne(rows)
}

func encodeList(list []string) string {
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s string) []string {
	var out []string
	if s != "" {
		_ = json.Unmarshal([]byte(s), &out)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// normalizeList trims, drops empties and dedupes while keeping order.
func normalizeList(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
