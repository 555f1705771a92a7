// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"github.com/gin-gonic/gin"
)

// Meta describes list payloads.
type Meta struct {
	Total int `json:"total"`
}

type ApiEnvelope struct {
	Ok    bool  `json:"ok"`
	Data  any   `json:"data,omitempty"`
	Meta  *Meta `json:"meta,omitempty"`
	Error any   `json:"error,omitempty"`
}

func Success(c *gin.Context, status int, data interface{}, meta *Meta) {
	c.JSON(status, ApiEnvelope{
		Ok:   true,
		Data: data,
		Meta: meta,
	})
}

func Error(c *gin.Context, status int, errorCode string, message string, details interface{}) {
	c.JSON(status, ApiEnvelope{
		Ok: false,
		Error: map[string]interface{}{
			"code":    errorCode,
			"message": message,
			"details": details,
		},
	})
}
