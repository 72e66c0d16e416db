package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mangavault/internal/metrics"
	"mangavault/internal/storage"
	"mangavault/pkg/apierr"
)

// handleUpload is the server-proxied path: multipart form in, public URL
// out. Image dimensions are probed from the stream so chapter submissions
// can carry them without the client measuring anything.
func (d *Deps) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		d.badRequest(c, "multipart field 'file' required")
		return
	}
	folder := c.PostForm("folder")
	if folder == "" {
		folder = storage.FolderPages
	}
	contentType := fileHeader.Header.Get("Content-Type")

	if err := storage.ValidateRequest(folder, fileHeader.Filename, contentType,
		fileHeader.Size, d.MaxUploadBytes); err != nil {
		d.fail(c, err)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		d.fail(c, err)
		return
	}
	defer f.Close()

	width, height, body := storage.ProbeDimensions(f)

	obj, err := d.Store.Upload(c.Request.Context(), storage.UploadRequest{
		Folder:      folder,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		Body:        body,
	})
	if err != nil {
		d.fail(c, err)
		return
	}
	obj.Width = width
	obj.Height = height

	metrics.Uploads.WithLabelValues("proxied").Inc()
	c.JSON(http.StatusCreated, obj)
}

type presignRequest struct {
	Folder      string `json:"folder" binding:"required"`
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// handlePresign is the direct path: the client gets a time-limited PUT URL
// and uploads to storage itself.
func (d *Deps) handlePresign(c *gin.Context) {
	if d.Presigner == nil {
		d.fail(c, apierr.Upstream("direct uploads are not available", nil))
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		d.badRequest(c, "folder, file_name and content_type required")
		return
	}

	p, err := d.Presigner.Presign(c.Request.Context(), req.Folder, req.FileName, req.ContentType)
	if err != nil {
		d.fail(c, err)
		return
	}

	metrics.Uploads.WithLabelValues("presigned").Inc()
	c.JSON(http.StatusOK, p)
}
