package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mangavault/pkg/apierr"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// fail maps an error onto its HTTP status and a safe body. Internal causes
// are logged, never sent to the client.
func (d *Deps) fail(c *gin.Context, err error) {
	status := apierr.HTTPStatus(err)
	body := errorBody{Error: apierr.Message(err)}

	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Kind == apierr.KindValidation && ae.Err != nil {
		body.Details = ae.Err.Error()
	}

	if status >= 500 {
		d.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest is shorthand for binding failures.
func (d *Deps) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(400, errorBody{Error: msg})
}
