package notification

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"mangavault/internal/metrics"
	"mangavault/pkg/models"
)

// Pusher delivers a freshly created notification to a connected client.
// Implemented by the websocket hub; a no-op is fine.
type Pusher interface {
	Push(userID string, n models.Notification)
}

type nopPusher struct{}

func (nopPusher) Push(string, models.Notification) {}

// Fanout creates notification records as side effects of comment and
// reaction activity. It is strictly best-effort: every failure is logged
// and swallowed so the triggering request never fails on its account.
type Fanout struct {
	db     *sql.DB
	logger *zap.Logger
	pusher Pusher
}

func NewFanout(db *sql.DB, logger *zap.Logger, pusher Pusher) *Fanout {
	if pusher == nil {
		pusher = nopPusher{}
	}
	return &Fanout{db: db, logger: logger, pusher: pusher}
}

// CommentCreated notifies the parties affected by a new comment: the parent
// comment's author on replies, and the manga owner. The commenter never
// notifies themselves, and nobody is notified twice for one comment.
func (f *Fanout) CommentCreated(ctx context.Context, c models.Comment, from models.UserRef, mangaOwnerID string) {
	data := models.NotificationData{
		MangaID:   c.MangaID,
		ChapterID: c.ChapterID,
		CommentID: c.ID,
		FromUser:  &from,
	}

	notified := map[string]bool{c.UserID: true}

	if c.ParentID != "" {
		var parentAuthor string
		err := f.db.QueryRowContext(ctx,
			`SELECT user_id FROM comments WHERE id = ?`, c.ParentID).Scan(&parentAuthor)
		if err != nil {
			f.logger.Warn("fanout: resolve parent author failed",
				zap.String("comment_id", c.ID), zap.Error(err))
		} else if !notified[parentAuthor] {
			f.create(ctx, parentAuthor, models.NotifyCommentReply, data)
			notified[parentAuthor] = true
		}
	}

	if !notified[mangaOwnerID] {
		typ := models.NotifyNewComment
		if c.ParentID != "" {
			typ = models.NotifyMangaComment
		}
		f.create(ctx, mangaOwnerID, typ, data)
	}
}

// ReactionChanged notifies the comment author about a like, or about the
// like being taken back. Dislikes are intentionally silent.
func (f *Fanout) ReactionChanged(ctx context.Context, c models.Comment, from models.UserRef, kind string, active bool) {
	if kind != "like" || c.UserID == from.ID {
		return
	}
	typ := models.NotifyLike
	if !active {
		typ = models.NotifyUnlike
	}
	f.create(ctx, c.UserID, typ, models.NotificationData{
		MangaID:   c.MangaID,
		ChapterID: c.ChapterID,
		CommentID: c.ID,
		FromUser:  &from,
	})
}

func (f *Fanout) create(ctx context.Context, userID, typ string, data models.NotificationData) {
	n, err := Create(ctx, f.db, userID, typ, data)
	if err != nil {
		f.logger.Warn("fanout: create notification failed",
			zap.String("user_id", userID), zap.String("type", typ), zap.Error(err))
		return
	}
	metrics.NotificationsCreated.Inc()
	f.pusher.Push(userID, n)
}
