// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"fmt"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

var (
	MangaCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "manga_created_total",
			Help: "Total number of manga created.",
		})
	ChaptersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chapters_created_total",
			Help: "Total number of chapters assembled.",
		})
	CommentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_total",
			Help: "Total number of comments created.",
		})
	NotificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notifications fanned out.",
		})
	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Total uploads by path (proxied or presigned).",
		}, []string{"path"})
	StorageFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_fallbacks_total",
			Help: "Times the primary storage path failed over to the secondary.",
		})
)

// Register attaches request-level prometheus metrics to the router and
// serves them on /metrics.
func Register(r *gin.Engine) {
	p := ginprometheus.NewPrometheus("mangavault")
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		url := c.Request.URL.Path
		for _, param := range c.Params {
			url = strings.Replace(url, param.Value, fmt.Sprintf(":%s", param.Key), 1)
		}
		return url
	}
	p.Use(r)
}

// RateLimiter returns a per-client-IP limiter middleware allowing n
// requests per second, for mutating routes.
func RateLimiter(n int) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: uint(n),
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.JSON(429, gin.H{"error": "too many requests"})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
