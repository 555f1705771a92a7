package leave

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	leaveerrors "go-elms/internal/leave/errors"
	"go-elms/internal/shared/apperror"
	"go-elms/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service Service
	rdb     *redis.Client
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	return NewHandlerWithRedis(service, nil, logger...)
}

// NewHandlerWithRedis stores submit responses under the idempotency key set
// by middleware.Idempotency.
func NewHandlerWithRedis(service Service, rdb *redis.Client, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leave.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.handler")
	}
	return &Handler{service: service, rdb: rdb, logger: l}
}

func getActor(c *gin.Context) Actor {
	return Actor{
		EmployeeID: c.GetString("employee_id"),
		Role:       c.GetString("role"),
	}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("leave request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// writeDecisionError names the request that failed so the admin view can
// re-enable the right row.
func (h *Handler) writeDecisionError(c *gin.Context, id int64, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("leave decision failed",
		zap.Int64("leave_id", id),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, gin.H{"leave_id": id})
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.WithField("id", leaveerrors.ErrInvalidLeaveID)
	}
	return id, nil
}

func (h *Handler) Submit(c *gin.Context) {
	lockKey, _ := c.Get("idempotency_lock_key")
	cacheKey, _ := c.Get("idempotency_cache_key")

	if h.rdb != nil {
		if lk, ok := lockKey.(string); ok && lk != "" {
			defer h.rdb.Del(c.Request.Context(), lk)
		}
	}

	actor := getActor(c)
	h.logger.Debug("http submit leave", zap.String("employee_id", actor.EmployeeID))

	var req CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http submit leave validation failed", zap.Error(err))
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if h.rdb != nil {
		if ck, ok := cacheKey.(string); ok && ck != "" {
			if payload, marshalErr := json.Marshal(resp); marshalErr == nil {
				_ = h.rdb.Set(c.Request.Context(), ck, payload, 24*time.Hour).Err()
			}
		}
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) MyRequests(c *gin.Context) {
	actor := getActor(c)

	resp, err := h.service.MyRequests(c.Request.Context(), actor.EmployeeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, &response.Meta{Total: len(resp.Pending) + len(resp.History)})
}

func (h *Handler) MyBalance(c *gin.Context) {
	actor := getActor(c)

	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			h.writeServiceError(c, apperror.WithField("year", leaveerrors.ErrInvalidYear))
			return
		}
		year = y
	}

	resp, err := h.service.MyBalance(c.Request.Context(), actor.EmployeeID, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), getActor(c), id)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) AdminQueues(c *gin.Context) {
	resp, err := h.service.AdminQueues(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	total := len(resp.Pending) + len(resp.Accepted) + len(resp.Denied)
	response.Success(c, http.StatusOK, resp, &response.Meta{Total: total})
}

func (h *Handler) Approve(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.Approve(c.Request.Context(), getActor(c).EmployeeID, id)
	if err != nil {
		h.writeDecisionError(c, id, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Reject(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	// The body is optional: a rejection may carry no reason.
	var req RejectLeaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("http reject leave validation failed", zap.Error(err))
			h.writeServiceError(c, apperror.MapValidationError(err))
			return
		}
	}

	resp, err := h.service.Reject(c.Request.Context(), getActor(c).EmployeeID, id, req.RejectionReason)
	if err != nil {
		h.writeDecisionError(c, id, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ExportHistory(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.ExportHistory(c.Request.Context(), &buf); err != nil {
		h.writeServiceError(c, err)
		return
	}

	filename := "leave-history-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
