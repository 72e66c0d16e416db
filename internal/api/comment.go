package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mangavault/internal/auth"
	"mangavault/internal/chapter"
	"mangavault/internal/comment"
	"mangavault/internal/manga"
	"mangavault/internal/metrics"
	"mangavault/internal/user"
	"mangavault/pkg/apierr"
	"mangavault/pkg/models"
)

// fanoutTimeout bounds the detached notification side effects.
const fanoutTimeout = 10 * time.Second

type createCommentRequest struct {
	MangaID   string `json:"manga_id" binding:"required"`
	ChapterID string `json:"chapter_id"`
	ParentID  string `json:"parent_id"`
	Content   string `json:"content" binding:"required,min=1,max=5000"`
}

func (d *Deps) handleCreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "manga_id and content (1-5000 chars) required")
		return
	}
	ctx := c.Request.Context()

	m, err := manga.GetByID(ctx, d.DB, req.MangaID)
	if err != nil {
		d.fail(c, err)
		return
	}
	if req.ChapterID != "" {
		ch, err := chapter.Get(ctx, d.DB, req.ChapterID)
		if err != nil {
			d.fail(c, err)
			return
		}
		if ch.MangaID != req.MangaID {
			d.fail(c, apierr.Validation("chapter belongs to a different manga"))
			return
		}
	}

	userID := c.GetString(auth.CtxUserIDKey)
	cm, err := comment.Create(ctx, d.DB, comment.CreateInput{
		MangaID:   req.MangaID,
		ChapterID: req.ChapterID,
		UserID:    userID,
		ParentID:  req.ParentID,
		Content:   req.Content,
	})
	if err != nil {
		d.fail(c, err)
		return
	}
	metrics.CommentsCreated.Inc()

	// Notification fan-out is a detached best-effort side channel: it
	// must never delay or fail the comment response.
	if d.Fanout != nil {
		from, err := user.GetRef(ctx, d.DB, userID)
		if err == nil {
			go func() {
				fctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
				defer cancel()
				d.Fanout.CommentCreated(fctx, cm, from, m.OwnerID)
			}()
		}
	}

	cm.User = &models.UserRef{ID: userID, Username: c.GetString(auth.CtxUsernameKey)}
	c.JSON(http.StatusCreated, cm)
}

func (d *Deps) handleListComments(c *gin.Context) {
	mangaID := c.Param("id")
	if err := d.requireManga(c, mangaID); err != nil {
		d.fail(c, err)
		return
	}

	list, pagination, err := comment.ListByManga(c.Request.Context(), d.DB, mangaID,
		parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 20))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": list, "pagination": pagination})
}

func (d *Deps) handleListReplies(c *gin.Context) {
	parentID := c.Param("id")
	if _, err := comment.Get(c.Request.Context(), d.DB, parentID); err != nil {
		d.fail(c, err)
		return
	}
	replies, err := comment.ListReplies(c.Request.Context(), d.DB, parentID)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

type editCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

func (d *Deps) handleEditComment(c *gin.Context) {
	var req editCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "content (1-5000 chars) required")
		return
	}

	id := c.Param("id")
	userID := c.GetString(auth.CtxUserIDKey)
	if err := comment.Edit(c.Request.Context(), d.DB, id, userID, req.Content); err != nil {
		d.fail(c, err)
		return
	}

	cm, err := comment.Get(c.Request.Context(), d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (d *Deps) handleDeleteComment(c *gin.Context) {
	id := c.Param("id")
	cm, err := comment.Get(c.Request.Context(), d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}
	if cm.UserID != c.GetString(auth.CtxUserIDKey) && !auth.IsStaff(c) {
		d.fail(c, apierr.Forbidden("only the author or an admin can delete a comment"))
		return
	}
	if err := comment.SoftDelete(c.Request.Context(), d.DB, id); err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type reactRequest struct {
	Kind string `json:"kind" binding:"required,oneof=like dislike"`
}

func (d *Deps) handleReactComment(c *gin.Context) {
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "kind must be like or dislike")
		return
	}

	id := c.Param("id")
	userID := c.GetString(auth.CtxUserIDKey)
	ctx := c.Request.Context()

	cm, err := comment.Get(ctx, d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}

	effective, err := comment.React(ctx, d.DB, id, userID, req.Kind)
	if err != nil {
		d.fail(c, err)
		return
	}

	if d.Fanout != nil && req.Kind == comment.ReactionLike {
		if from, err := user.GetRef(ctx, d.DB, userID); err == nil {
			active := effective == comment.ReactionLike
			go func() {
				fctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
				defer cancel()
				d.Fanout.ReactionChanged(fctx, cm, from, comment.ReactionLike, active)
			}()
		}
	}

	cm, err = comment.Get(ctx, d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reaction": effective, "comment": cm})
}
