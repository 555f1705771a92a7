package leave

import (
	"go-elms/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the employee and admin views. submitGuards run before
// Submit only (rate limit, idempotency).
func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	auth gin.HandlerFunc,
	submitGuards ...gin.HandlerFunc,
) {
	requests := r.Group("/leave-requests")
	requests.Use(auth)
	{
		submit := append([]gin.HandlerFunc{middleware.RBACAuthorize(rbacService, "leave", "create")}, submitGuards...)
		requests.POST("", append(submit, handler.Submit)...)
		requests.GET("/my", middleware.RBACAuthorize(rbacService, "leave", "read"), handler.MyRequests)
		requests.GET("/:id", middleware.RBACAuthorize(rbacService, "leave", "read"), handler.GetByID)
	}

	balances := r.Group("/leave-balances")
	balances.Use(auth)
	{
		balances.GET("/my", middleware.RBACAuthorize(rbacService, "leave", "read"), handler.MyBalance)
	}

	admin := r.Group("/admin/leave-requests")
	admin.Use(auth)
	{
		admin.GET("", middleware.RBACAuthorize(rbacService, "leave", "read_all"), handler.AdminQueues)
		admin.GET("/export", middleware.RBACAuthorize(rbacService, "leave", "export"), handler.ExportHistory)
		admin.PUT("/:id/approve", middleware.RBACAuthorize(rbacService, "leave", "approve"), handler.Approve)
		admin.PUT("/:id/reject", middleware.RBACAuthorize(rbacService, "leave", "approve"), handler.Reject)
	}
}
