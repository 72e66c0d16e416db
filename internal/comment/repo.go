// Package comment implements threaded comments (one reply level) with
// like/dislike reactions. A reply stores its parent's id; reply lists and
// counts are always derived by query so there is a single source of truth
// for the parent/child edge.
package comment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mangavault/pkg/apierr"
	"mangavault/pkg/models"
)

const MaxContentLength = 5000

const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

type CreateInput struct {
	MangaID   string
	ChapterID string // optional
	UserID    string
	ParentID  string // optional; must reference a top-level comment
	Content   string
}

// Create validates and inserts a comment. Only one level of threading is
// allowed: the parent must itself be top-level and belong to the same
// manga.
func Create(ctx context.Context, db *sql.DB, in CreateInput) (models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return models.Comment{}, apierr.Validation("content is required")
	}
	if len(content) > MaxContentLength {
		return models.Comment{}, apierr.Validation("content exceeds %d characters", MaxContentLength)
	}

	if in.ParentID != "" {
		parent, err := Get(ctx, db, in.ParentID)
		if err != nil {
			return models.Comment{}, err
		}
		if parent.ParentID != "" {
			return models.Comment{}, apierr.Validation("cannot reply to a reply")
		}
		if parent.MangaID != in.MangaID {
			return models.Comment{}, apierr.Validation("parent comment belongs to a different manga")
		}
	}

	c := models.Comment{
		ID:        uuid.NewString(),
		MangaID:   in.MangaID,
		ChapterID: in.ChapterID,
		UserID:    in.UserID,
		ParentID:  in.ParentID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO comments (id, manga_id, chapter_id, user_id, parent_id, content, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.MangaID, nullable(c.ChapterID), c.UserID, nullable(c.ParentID), c.Content,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return models.Comment{}, err
	}
	return c, nil
}

const commentCols = `
	c.id, c.manga_id, COALESCE(c.chapter_id, ''), c.user_id, COALESCE(c.parent_id, ''),
	c.content, c.edited, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = c.id AND r.kind = 'like'),
	(SELECT COUNT(*) FROM comment_reactions r WHERE r.comment_id = c.id AND r.kind = 'dislike'),
	(SELECT COUNT(*) FROM comments ch WHERE ch.parent_id = c.id AND ch.is_deleted = 0),
	u.id, u.username, u.avatar`

// Get returns a single non-deleted comment with derived counts.
func Get(ctx context.Context, db *sql.DB, id string) (models.Comment, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+commentCols+`
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.id = ? AND c.is_deleted = 0`, id)
	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, apierr.NotFound("comment")
	}
	return c, err
}

// Edit replaces the content. Only the author may edit.
func Edit(ctx context.Context, db *sql.DB, id, userID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return apierr.Validation("content is required")
	}
	if len(content) > MaxContentLength {
		return apierr.Validation("content exceeds %d characters", MaxContentLength)
	}

	c, err := Get(ctx, db, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return apierr.Forbidden("only the author can edit a comment")
	}
	_, err = db.ExecContext(ctx, `
		UPDATE comments SET content = ?, edited = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, content, id)
	return err
}

// SoftDelete hides the comment. Replies stay visible; their parent simply
// reads as deleted.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE comments SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_deleted = 0`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("comment")
	}
	return nil
}

// React records a like or dislike. Reacting again with the same kind
// removes it (toggle); with the other kind switches it. Returns the kind
// now in effect ("" when removed).
func React(ctx context.Context, db *sql.DB, commentID, userID, kind string) (string, error) {
	if kind != ReactionLike && kind != ReactionDislike {
		return "", apierr.Validation("reaction must be like or dislike")
	}
	if _, err := Get(ctx, db, commentID); err != nil {
		return "", err
	}

	var current string
	err := db.QueryRowContext(ctx,
		`SELECT kind FROM comment_reactions WHERE comment_id = ? AND user_id = ?`,
		commentID, userID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = db.ExecContext(ctx,
			`INSERT INTO comment_reactions (comment_id, user_id, kind) VALUES (?,?,?)`,
			commentID, userID, kind)
		return kind, err
	case err != nil:
		return "", err
	case current == kind:
		_, err = db.ExecContext(ctx,
			`DELETE FROM comment_reactions WHERE comment_id = ? AND user_id = ?`,
			commentID, userID)
		return "", err
	default:
		_, err = db.ExecContext(ctx,
			`UPDATE comment_reactions SET kind = ? WHERE comment_id = ? AND user_id = ?`,
			kind, commentID, userID)
		return kind, err
	}
}

// ListByManga pages through top-level comments, newest first.
func ListByManga(ctx context.Context, db *sql.DB, mangaID string, page, limit int) ([]models.Comment, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments
		WHERE manga_id = ? AND parent_id IS NULL AND is_deleted = 0`, mangaID).Scan(&total); err != nil {
		return nil, models.Pagination{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+commentCols+`
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.manga_id = ? AND c.parent_id IS NULL AND c.is_deleted = 0
		ORDER BY c.created_at DESC
		LIMIT ? OFFSET ?`, mangaID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	defer rows.Close()

	out, err := scanAll(rows)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return out, models.NewPagination(total, page, limit), nil
}

// ListReplies returns the direct replies of a comment, oldest first.
func ListReplies(ctx context.Context, db *sql.DB, parentID string) ([]models.Comment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+commentCols+`
		FROM comments c JOIN users u ON u.id = c.user_id
		WHERE c.parent_id = ? AND c.is_deleted = 0
		ORDER BY c.created_at ASC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (models.Comment, error) {
	var c models.Comment
	var u models.UserRef
	err := row.Scan(&c.ID, &c.MangaID, &c.ChapterID, &c.UserID, &c.ParentID,
		&c.Content, &c.Edited, &c.CreatedAt, &c.UpdatedAt,
		&c.Likes, &c.Dislikes, &c.Replies,
		&u.ID, &u.Username, &u.Avatar)
	if err != nil {
		return models.Comment{}, err
	}
	c.User = &u
	return c, nil
}

func scanAll(rows *sql.Rows) ([]models.Comment, error) {
	out := []models.Comment{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
