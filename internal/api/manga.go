package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mangavault/internal/auth"
	"mangavault/internal/manga"
	"mangavault/internal/metrics"
	"mangavault/pkg/apierr"
)

func (d *Deps) handleListManga(c *gin.Context) {
	params := manga.ListParams{
		Query:     c.Query("q"),
		Status:    c.Query("status"),
		Genre:     c.Query("genre"),
		Tag:       c.Query("tag"),
		OwnerID:   c.Query("owner"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      parseInt(c.Query("page"), 1),
		Limit:     parseInt(c.Query("limit"), manga.DefaultLimit),
	}

	list, pagination, err := manga.List(c.Request.Context(), d.DB, params)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"manga": list, "pagination": pagination})
}

type createMangaRequest struct {
	Title       string   `json:"title" binding:"required,max=300"`
	Description string   `json:"description"`
	CoverImage  string   `json:"cover_image" binding:"omitempty,url"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	Artist      string   `json:"artist"`
	Status      string   `json:"status" binding:"omitempty,oneof=ongoing completed hiatus cancelled"`
}

func (d *Deps) handleCreateManga(c *gin.Context) {
	var req createMangaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "title required; status must be one of ongoing/completed/hiatus/cancelled")
		return
	}

	m, err := manga.Create(c.Request.Context(), d.DB, manga.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		Genres:      req.Genres,
		Tags:        req.Tags,
		Author:      req.Author,
		Artist:      req.Artist,
		Status:      req.Status,
		OwnerID:     c.GetString(auth.CtxUserIDKey),
	})
	if err != nil {
		d.fail(c, err)
		return
	}
	metrics.MangaCreated.Inc()
	c.JSON(http.StatusCreated, m)
}

func (d *Deps) handleGetManga(c *gin.Context) {
	id := c.Param("id")
	m, err := manga.GetByID(c.Request.Context(), d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}

	// A view is counted on detail reads; failures only cost the count.
	if err := manga.BumpViews(c.Request.Context(), d.DB, id); err == nil {
		m.Views++
	}
	c.JSON(http.StatusOK, m)
}

type updateMangaRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	CoverImage  *string  `json:"cover_image"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Author      *string  `json:"author"`
	Artist      *string  `json:"artist"`
	Status      *string  `json:"status"`
	Rating      *float64 `json:"rating"`
}

func (d *Deps) handleUpdateManga(c *gin.Context) {
	id := c.Param("id")
	if err := d.requireOwnership(c, id); err != nil {
		d.fail(c, err)
		return
	}

	var req updateMangaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "invalid json body")
		return
	}

	err := manga.Update(c.Request.Context(), d.DB, id, manga.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		Genres:      req.Genres,
		Tags:        req.Tags,
		Author:      req.Author,
		Artist:      req.Artist,
		Status:      req.Status,
		Rating:      req.Rating,
	})
	if err != nil {
		d.fail(c, err)
		return
	}

	m, err := manga.GetByID(c.Request.Context(), d.DB, id)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (d *Deps) handleDeleteManga(c *gin.Context) {
	id := c.Param("id")
	if err := d.requireOwnership(c, id); err != nil {
		d.fail(c, err)
		return
	}
	if err := manga.SoftDelete(c.Request.Context(), d.DB, id); err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (d *Deps) handleListTags(c *gin.Context) {
	genres, err := manga.Facets(c.Request.Context(), d.DB, "genres")
	if err != nil {
		d.fail(c, err)
		return
	}
	tags, err := manga.Facets(c.Request.Context(), d.DB, "tags")
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres, "tags": tags})
}

// requireManga fails with not-found for unknown or soft-deleted manga.
func (d *Deps) requireManga(c *gin.Context, mangaID string) error {
	_, err := manga.GetByID(c.Request.Context(), d.DB, mangaID)
	return err
}

// requireOwnership allows the manga's owner and admins through.
func (d *Deps) requireOwnership(c *gin.Context, mangaID string) error {
	m, err := manga.GetByID(c.Request.Context(), d.DB, mangaID)
	if err != nil {
		return err
	}
	if m.OwnerID != c.GetString(auth.CtxUserIDKey) && !auth.IsStaff(c) {
		return apierr.Forbidden("not the owner of this manga")
	}
	return nil
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
