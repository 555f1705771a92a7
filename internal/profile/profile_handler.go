package profile

import (
	"net/http"

	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("profile.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("profile.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) Me(c *gin.Context) {
	employeeID := c.GetString("employee_id")

	resp, err := h.service.Current(c.Request.Context(), employeeID, c.GetString("role"))
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		h.logger.Warn("profile lookup failed",
			zap.String("employee_id", employeeID),
			zap.Int("status", httpErr.Status),
			zap.String("code", httpErr.Code),
		)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
