package handler

import (
	"linxi/internal/config"
	"linxi/internal/gateway"
	"linxi/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(cfg *config.Config, h *Handler, status *service.StatusService, chatGateway *gateway.ChatGateway) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// API 路由组
	api := r.Group("/api/v1")

	// 支付网关回调不走登录态，身份靠签名校验
	api.POST("/payment/callback", h.PaymentCallback)

	// 登录态接口
	authed := api.Group("")
	authed.Use(AuthMiddleware(cfg.Auth.JWTSecret))
	authed.Use(BanMiddleware(status))
	{
		// 钱包相关
		wallet := authed.Group("/wallet")
		{
			wallet.GET("", h.GetWallet)
			wallet.POST("/recharge", h.CreateRecharge)
		}

		// 聊天相关
		chat := authed.Group("/chat")
		{
			chat.GET("/conversations", h.GetConversations)
			chat.GET("/messages", h.ListMessages)
			chat.POST("/read", h.MarkRead)
		}

		// 举报相关
		authed.POST("/report", h.CreateReport)

		// 管理后台
		admin := authed.Group("/admin")
		admin.Use(AdminMiddleware())
		{
			admin.GET("/reports", h.ListReports)
			admin.POST("/reports/process", h.ProcessReport)
		}
	}

	// 聊天长连接，认证在握手时用 token 参数完成
	r.GET("/ws/chat", chatGateway.HandleWS)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
