package profile

import (
	"go-elms/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService middleware.RBACService,
	auth gin.HandlerFunc,
) {
	r.GET("/me", auth, middleware.RBACAuthorize(rbacService, "profile", "read"), handler.Me)
}
