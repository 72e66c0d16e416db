package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mangavault/pkg/apierr"
	"mangavault/pkg/database"
	"mangavault/pkg/models"
)

// Create registers a new account with the "user" role and returns it.
func Create(ctx context.Context, db *sql.DB, username, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	u := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    strings.ToLower(email),
		Role:     models.RoleUser,
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO users(id, username, email, password_hash) VALUES(?,?,?,?)`,
		u.ID, u.Username, u.Email, string(hash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.User{}, apierr.Conflict("username or email already taken")
		}
		return models.User{}, err
	}
	return u, nil
}

// VerifyLogin checks username (or email) and password.
func VerifyLogin(ctx context.Context, db *sql.DB, login, password string) (models.User, error) {
	var u models.User
	err := db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, avatar, preferences, created_at
		 FROM users WHERE username = ? OR email = ?`,
		login, strings.ToLower(login)).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Avatar, &u.Preferences, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apierr.Unauthorized("invalid credentials")
		}
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, apierr.Unauthorized("invalid credentials")
	}
	return u, nil
}

func GetByID(ctx context.Context, db *sql.DB, id string) (models.User, error) {
	var u models.User
	err := db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, avatar, preferences, created_at
		 FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Avatar, &u.Preferences, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apierr.NotFound("user")
	}
	return u, err
}

// GetRef returns the lightweight summary embedded in comments and
// notification payloads.
func GetRef(ctx context.Context, db *sql.DB, id string) (models.UserRef, error) {
	var r models.UserRef
	err := db.QueryRowContext(ctx,
		`SELECT id, username, avatar FROM users WHERE id = ?`, id).
		Scan(&r.ID, &r.Username, &r.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserRef{}, apierr.NotFound("user")
	}
	return r, err
}

type ProfileUpdate struct {
	Avatar      *string
	Preferences *string
}

func UpdateProfile(ctx context.Context, db *sql.DB, id string, upd ProfileUpdate) error {
	if upd.Avatar != nil {
		if _, err := db.ExecContext(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, *upd.Avatar, id); err != nil {
			return err
		}
	}
	if upd.Preferences != nil {
		if _, err := db.ExecContext(ctx, `UPDATE users SET preferences = ? WHERE id = ?`, *upd.Preferences, id); err != nil {
			return err
		}
	}
	return nil
}

// SetRole is an admin operation.
func SetRole(ctx context.Context, db *sql.DB, id, role string) error {
	if !models.IsValidRole(role) {
		return apierr.Validation("unknown role %q", role)
	}
	res, err := db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("user")
	}
	return nil
}

// Stats derives the user's counters instead of storing them, so they can
// never drift from the underlying rows.
func Stats(ctx context.Context, db *sql.DB, id string) (models.UserStats, error) {
	var s models.UserStats
	err := db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM manga WHERE owner_id = ? AND is_deleted = 0),
			(SELECT COUNT(*) FROM comments WHERE user_id = ? AND is_deleted = 0)`,
		id, id).Scan(&s.UploadedManga, &s.Comments)
	return s, err
}

func AddFavorite(ctx context.Context, db *sql.DB, userID, mangaID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_favorites(user_id, manga_id) VALUES(?,?)`,
		userID, mangaID)
	return err
}

func RemoveFavorite(ctx context.Context, db *sql.DB, userID, mangaID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND manga_id = ?`,
		userID, mangaID)
	return err
}

// Favorites lists the user's favorited manga, newest favorite first.
// Soft-deleted manga drop out without being unfavorited.
func Favorites(ctx context.Context, db *sql.DB, userID string) ([]models.Manga, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT m.id, m.title, m.description, m.cover_image, m.genres, m.tags,
		       m.author, m.artist, m.status, m.rating, m.views, m.chapters_count,
		       m.owner_id, m.created_at, m.updated_at
		FROM user_favorites f
		JOIN manga m ON m.id = f.manga_id AND m.is_deleted = 0
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMangaRows(rows)
}

func scanMangaRows(rows *sql.Rows) ([]models.Manga, error) {
	var out []models.Manga
	for rows.Next() {
		var m models.Manga
		var genres, tags string
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.CoverImage, &genres, &tags,
			&m.Author, &m.Artist, &m.Status, &m.Rating, &m.Views, &m.ChaptersCount,
			&m.OwnerID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Genres = decodeList(genres)
		m.Tags = decodeList(tags)
		out = append(out, m)
	}
	return out, rows.Err()
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
