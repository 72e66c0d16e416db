package models

import "time"

// Manga status values, mirrored by a CHECK constraint in the schema.
type MangaStatus string

const (
	StatusOngoing   MangaStatus = "ongoing"
	StatusCompleted MangaStatus = "completed"
	StatusHiatus    MangaStatus = "hiatus"
	StatusCancelled MangaStatus = "cancelled"
)

func IsValidMangaStatus(s string) bool {
	switch MangaStatus(s) {
	case StatusOngoing, StatusCompleted, StatusHiatus, StatusCancelled:
		return true
	default:
		return false
	}
}

// User roles. Uploaders may create manga and chapters; admins may do that
// plus moderate content they do not own.
const (
	RoleUser     = "user"
	RoleUploader = "uploader"
	RoleAdmin    = "admin"
)

func IsValidRole(r string) bool {
	return r == RoleUser || r == RoleUploader || r == RoleAdmin
}

// users table
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	Preferences  string    `json:"preferences,omitempty"` // opaque JSON blob owned by the frontend
	CreatedAt    time.Time `json:"created_at"`
}

// Per-user counters, derived at read time rather than stored.
type UserStats struct {
	UploadedManga int `json:"uploaded_manga"`
	Comments      int `json:"comments"`
}

// manga table. Genres and tags are stored as JSON text columns.
type Manga struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CoverImage    string    `json:"cover_image,omitempty"`
	Genres        []string  `json:"genres"`
	Tags          []string  `json:"tags"`
	Author        string    `json:"author"`
	Artist        string    `json:"artist,omitempty"`
	Status        string    `json:"status"`
	Rating        float64   `json:"rating"`
	Views         int64     `json:"views"`
	ChaptersCount int       `json:"chapters_count"`
	OwnerID       string    `json:"owner_id"`
	IsDeleted     bool      `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// A single page image inside a chapter. PageNumber is assigned by the
// server from submission order and is contiguous starting at 1.
type Page struct {
	PageNumber int    `json:"page_number"`
	ImageURL   string `json:"image_url"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// chapters table. Pages are stored as a JSON text column so submission
// order survives round trips without a join.
type Chapter struct {
	ID            string    `json:"id"`
	MangaID       string    `json:"manga_id"`
	ChapterNumber float64   `json:"chapter_number"`
	Volume        int       `json:"volume,omitempty"`
	Title         string    `json:"title,omitempty"`
	Pages         []Page    `json:"pages,omitempty"`
	PageCount     int       `json:"page_count"`
	Views         int64     `json:"views"`
	CreatedAt     time.Time `json:"created_at"`
}

// comments table. A reply holds its parent's id; reply lists and counts
// are derived by query, the parent stores nothing.
type Comment struct {
	ID        string    `json:"id"`
	MangaID   string    `json:"manga_id"`
	ChapterID string    `json:"chapter_id,omitempty"`
	UserID    string    `json:"user_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Replies   int       `json:"replies"`
	Edited    bool      `json:"edited"`
	IsDeleted bool      `json:"-"`
	User      *UserRef  `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Minimal user summary embedded in comment and notification payloads.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Notification types.
const (
	NotifyNewComment   = "new_comment"
	NotifyCommentReply = "comment_reply"
	NotifyLike         = "like"
	NotifyUnlike       = "unlike"
	NotifyMangaComment = "manga_comment"
)

// Cross-references carried by a notification. Always raw string ids plus a
// small sender summary; payloads never embed populated documents.
type NotificationData struct {
	MangaID   string   `json:"manga_id,omitempty"`
	ChapterID string   `json:"chapter_id,omitempty"`
	CommentID string   `json:"comment_id,omitempty"`
	FromUser  *UserRef `json:"from_user,omitempty"`
}

// notifications table
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      string           `json:"type"`
	Data      NotificationData `json:"data"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Offset pagination metadata returned with every list response.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	Total       int  `json:"total"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

func NewPagination(total, page, limit int) Pagination {
	if limit < 1 {
		limit = 1
	}
	totalPages := (total + limit - 1) / limit
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		HasNextPage: page*limit < total,
		HasPrevPage: page > 1 && total > 0,
	}
}

// Usage-counted facet (genre or tag) across non-deleted manga.
type Facet struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
