package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mangavault/internal/auth"
	"mangavault/internal/metrics"
	"mangavault/internal/notify"
	"mangavault/pkg/models"
)

// Routes mounts the full API surface on r.
func (d *Deps) Routes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")

	var limited gin.HandlerFunc
	if d.RateLimitPerSecond > 0 {
		limited = metrics.RateLimiter(d.RateLimitPerSecond)
	} else {
		limited = func(c *gin.Context) { c.Next() }
	}

	// Auth
	api.POST("/auth/register", limited, d.handleRegister)
	api.POST("/auth/login", limited, d.handleLogin)

	// Public reads (identity optional, for future personalization)
	public := api.Group("/", auth.OptionalJWT(d.JWTSecret))
	public.GET("/manga", d.handleListManga)
	public.GET("/manga/:id", d.handleGetManga)
	public.GET("/manga/:id/chapters", d.handleListChapters)
	public.GET("/chapters/:id", d.handleGetChapter)
	public.GET("/manga/:id/comments", d.handleListComments)
	public.GET("/comments/:id/replies", d.handleListReplies)
	public.GET("/tags", d.handleListTags)

	// Authenticated
	authed := api.Group("/", auth.RequireJWT(d.JWTSecret))
	authed.GET("/users/me", d.handleGetMe)
	authed.PUT("/users/me", d.handleUpdateMe)
	authed.GET("/users/me/favorites", d.handleListFavorites)
	authed.POST("/users/me/favorites/:mangaId", limited, d.handleAddFavorite)
	authed.DELETE("/users/me/favorites/:mangaId", limited, d.handleRemoveFavorite)

	authed.POST("/comments", limited, d.handleCreateComment)
	authed.PUT("/comments/:id", limited, d.handleEditComment)
	authed.DELETE("/comments/:id", limited, d.handleDeleteComment)
	authed.POST("/comments/:id/react", limited, d.handleReactComment)

	authed.GET("/notifications", d.handleListNotifications)
	authed.GET("/notifications/unread-count", d.handleUnreadCount)
	authed.PATCH("/notifications/:id/read", d.handleMarkRead)
	authed.POST("/notifications/read-all", d.handleMarkAllRead)
	if d.Hub != nil {
		authed.GET("/notifications/ws", notify.Handler(d.Hub))
	}

	// Content management: uploaders and admins
	uploader := authed.Group("/", auth.RequireRole(models.RoleUploader, models.RoleAdmin))
	uploader.POST("/manga", limited, d.handleCreateManga)
	uploader.PUT("/manga/:id", limited, d.handleUpdateManga)
	uploader.DELETE("/manga/:id", limited, d.handleDeleteManga)
	uploader.POST("/manga/:id/chapters", limited, d.handleCreateChapter)
	uploader.DELETE("/chapters/:id", limited, d.handleDeleteChapter)
	uploader.POST("/upload", limited, d.handleUpload)
	uploader.POST("/upload/presign", limited, d.handlePresign)

	// Administration
	admin := authed.Group("/", auth.RequireRole(models.RoleAdmin))
	admin.PUT("/users/:id/role", d.handleSetRole)
}
