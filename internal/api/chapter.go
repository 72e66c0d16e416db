package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mangavault/internal/chapter"
	"mangavault/internal/metrics"
)

type createChapterRequest struct {
	ChapterNumber float64             `json:"chapter_number" binding:"min=0"`
	Volume        int                 `json:"volume" binding:"omitempty,min=0"`
	Title         string              `json:"title" binding:"max=300"`
	Pages         []chapter.PageInput `json:"pages" binding:"required,min=1"`
}

func (d *Deps) handleCreateChapter(c *gin.Context) {
	mangaID := c.Param("id")
	if err := d.requireOwnership(c, mangaID); err != nil {
		d.fail(c, err)
		return
	}

	var req createChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "chapter_number and a non-empty pages array required")
		return
	}

	ch, err := chapter.Assemble(c.Request.Context(), d.DB, chapter.AssembleInput{
		MangaID:       mangaID,
		ChapterNumber: req.ChapterNumber,
		Volume:        req.Volume,
		Title:         req.Title,
		Pages:         req.Pages,
	})
	if err != nil {
		d.fail(c, err)
		return
	}
	metrics.ChaptersCreated.Inc()
	c.JSON(http.StatusCreated, ch)
}

func (d *Deps) handleListChapters(c *gin.Context) {
	mangaID := c.Param("id")

	// 404 for unknown or deleted manga rather than an empty list.
	if err := d.requireManga(c, mangaID); err != nil {
		d.fail(c, err)
		return
	}

	chapters, err := chapter.ListByManga(c.Request.Context(), d.DB, mangaID)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chapters": chapters})
}

func (d *Deps) handleGetChapter(c *gin.Context) {
	id := c.Param("id")
	ch, err := chapter.Get(c.Request.Context(), d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}
	if err := chapter.BumpViews(c.Request.Context(), d.DB, id); err == nil {
		ch.Views++
	}
	c.JSON(http.StatusOK, ch)
}

func (d *Deps) handleDeleteChapter(c *gin.Context) {
	id := c.Param("id")
	ch, err := chapter.Get(c.Request.Context(), d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}
	if err := d.requireOwnership(c, ch.MangaID); err != nil {
		d.fail(c, err)
		return
	}
	if err := chapter.Delete(c.Request.Context(), d.DB, id); err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
