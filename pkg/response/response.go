package response

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/session-archiver/pkg/errors"
)

// Envelope represents the common response contract of the operations endpoints.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *appErrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	c.Header("Cache-Control", "no-store")
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Error sends status with err normalised to the common error structure.
func Error(c *gin.Context, status int, err error, data ...interface{}) {
	c.Header("Cache-Control", "no-store")
	envelope := Envelope{Error: appErrors.FromError(err)}
	if len(data) > 0 {
		envelope.Data = data[0]
	}
	c.AbortWithStatusJSON(status, envelope)
}
