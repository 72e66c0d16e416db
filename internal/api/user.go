package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mangavault/internal/auth"
	"mangavault/internal/user"
)

func (d *Deps) handleGetMe(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)
	u, err := user.GetByID(c.Request.Context(), d.DB, userID)
	if err != nil {
		d.fail(c, err)
		return
	}
	stats, err := user.Stats(c.Request.Context(), d.DB, userID)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "stats": stats})
}

type updateMeRequest struct {
	Avatar      *string `json:"avatar"`
	Preferences *string `json:"preferences"`
}

func (d *Deps) handleUpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "invalid json body")
		return
	}

	userID := c.GetString(auth.CtxUserIDKey)
	err := user.UpdateProfile(c.Request.Context(), d.DB, userID, user.ProfileUpdate{
		Avatar:      req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		d.fail(c, err)
		return
	}

	u, err := user.GetByID(c.Request.Context(), d.DB, userID)
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (d *Deps) handleListFavorites(c *gin.Context) {
	list, err := user.Favorites(c.Request.Context(), d.DB, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": list})
}

func (d *Deps) handleAddFavorite(c *gin.Context) {
	mangaID := c.Param("mangaId")
	if err := d.requireManga(c, mangaID); err != nil {
		d.fail(c, err)
		return
	}
	if err := user.AddFavorite(c.Request.Context(), d.DB, c.GetString(auth.CtxUserIDKey), mangaID); err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (d *Deps) handleRemoveFavorite(c *gin.Context) {
	err := user.RemoveFavorite(c.Request.Context(), d.DB,
		c.GetString(auth.CtxUserIDKey), c.Param("mangaId"))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user uploader admin"`
}

// handleSetRole promotes or demotes an account. Admin only.
func (d *Deps) handleSetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "role must be one of user/uploader/admin")
		return
	}
	if err := user.SetRole(c.Request.Context(), d.DB, c.Param("id"), req.Role); err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
