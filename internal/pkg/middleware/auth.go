package middleware

import (
	"net/http"
	"strings"

	"github.com/manmiddle614-crypto/backend/pkg/response"
	"github.com/manmiddle614-crypto/backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	CtxStaffID  = "staffID"
	CtxTenantID = "tenantID"
	CtxRole     = "role"
)

// AuthMiddleware JWT认证中间件 (食堂员工/扫码设备)
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		// 将员工、租户和角色存入上下文
		c.Set(CtxStaffID, claims.StaffID)
		c.Set(CtxTenantID, claims.TenantID)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Admin permission required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// IsAdmin 当前请求是否为管理员
func IsAdmin(c *gin.Context) bool {
	return c.GetInt(CtxRole) == utils.RoleAdmin
}
