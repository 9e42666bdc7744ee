package handler

import (
	"log"
	"time"

	"linxi/internal/auth"
	"linxi/internal/model"
	"linxi/internal/service"
	"linxi/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		// 记录日志
		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// AuthMiddleware 登录校验，解析 JWT 并把用户身份放进上下文
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := auth.ParseToken(secret, c.GetHeader("Authorization"))
		if err != nil {
			response.Unauthorized(c, "登录已失效")
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// BanMiddleware 封禁检查，走状态缓存
// 状态查不出来时放行：缓存和数据库同时故障不应该把所有请求挡在门外
func BanMiddleware(status *service.StatusService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("userID")

		userStatus, err := status.GetStatus(c.Request.Context(), userID)
		if err != nil {
			log.Printf("[BanMiddleware] 查询用户状态失败: userID=%d, err=%v", userID, err)
			c.Next()
			return
		}

		if userStatus == model.UserStatusBanned {
			response.Forbidden(c, "账号已被封禁")
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminMiddleware 管理员权限校验，必须挂在 AuthMiddleware 之后
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != model.UserRoleAdmin {
			response.Forbidden(c, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}
