package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"mangavault/pkg/apierr"
	"mangavault/pkg/models"
)

// Create inserts a notification record and returns it.
func Create(ctx context.Context, db *sql.DB, userID, typ string, data models.NotificationData) (models.Notification, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return models.Notification{}, err
	}
	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, data, created_at)
		VALUES (?,?,?,?,?)`,
		n.ID, n.UserID, n.Type, string(payload), n.CreatedAt)
	if err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// List pages through a user's notifications, newest first. unreadOnly
// restricts to unread ones.
func List(ctx context.Context, db *sql.DB, userID string, unreadOnly bool, page, limit int) ([]models.Notification, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	cond := `user_id = ?`
	if unreadOnly {
		cond += ` AND is_read = 0`
	}

	var total int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE `+cond, userID).Scan(&total); err != nil {
		return nil, models.Pagination{}, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, type, data, is_read, created_at
		FROM notifications WHERE `+cond+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var data string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, models.Pagination{}, err
		}
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, models.Pagination{}, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Pagination{}, err
	}
	return out, models.NewPagination(total, page, limit), nil
}

func UnreadCount(ctx context.Context, db *sql.DB, userID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	return n, err
}

// MarkRead flips is_read on one of the user's notifications.
func MarkRead(ctx context.Context, db *sql.DB, userID, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apierr.NotFound("notification")
	}
	return nil
}

func MarkAllRead(ctx context.Context, db *sql.DB, userID string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
