package handler

import (
	"errors"
	"strconv"

	"linxi/internal/repository"
	"linxi/internal/service"
	"linxi/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	walletService *service.WalletService
	chatService   *service.ChatService
	reportService *service.ReportService
	adminService  *service.AdminService
}

// NewHandler 创建处理器实例
func NewHandler(wallet *service.WalletService, chat *service.ChatService, report *service.ReportService, admin *service.AdminService) *Handler {
	return &Handler{
		walletService: wallet,
		chatService:   chat,
		reportService: report,
		adminService:  admin,
	}
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetWallet 查询余额与最近流水
// GET /api/v1/wallet
func (h *Handler) GetWallet(c *gin.Context) {
	userID := c.GetInt64("userID")

	wallet, err := h.walletService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(c, response.CodeNotFound, "用户不存在")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, wallet)
}

// RechargeRequest 充值下单请求
type RechargeRequest struct {
	Amount string `json:"amount" binding:"required"` // 金额字符串，避免浮点精度问题
	Remark string `json:"remark"`
}

// CreateRecharge 创建充值订单
// POST /api/v1/wallet/recharge
func (h *Handler) CreateRecharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.ParamError(c, "amount 参数错误")
		return
	}

	userID := c.GetInt64("userID")

	order, err := h.walletService.CreateRechargeOrder(c.Request.Context(), userID, amount, req.Remark)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			response.BusinessError(c, response.CodeInvalidAmount, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, order)
}

// PaymentCallbackRequest 支付网关回调
type PaymentCallbackRequest struct {
	OutTradeNo string `json:"outTradeNo" binding:"required"`
	Sign       string `json:"sign" binding:"required"`
}

// PaymentCallback 支付网关回调入口
// POST /api/v1/payment/callback
//
// 【关键点】这是唯一不走登录态的写接口，身份靠签名：
// 签名不合法直接拒绝；重复回调由服务层幂等处理，这里统一回 success，
// 网关拿不到 success 会一直重试
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	err := h.walletService.HandleRechargeCallback(c.Request.Context(), req.OutTradeNo, req.Sign)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			response.BusinessError(c, response.CodeInvalidSignature, err.Error())
		case errors.Is(err, service.ErrOrderNotFound):
			response.BusinessError(c, response.CodeOrderNotFound, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"message": "success"})
}

// ============================================================
// 聊天相关接口
// ============================================================

// GetConversations 会话列表
// GET /api/v1/chat/conversations
func (h *Handler) GetConversations(c *gin.Context) {
	userID := c.GetInt64("userID")

	conversations, err := h.chatService.GetConversations(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"list": conversations})
}

// ListMessages 拉取会话历史
// GET /api/v1/chat/messages?conversation_id=xxx&page=1&page_size=20
func (h *Handler) ListMessages(c *gin.Context) {
	convID, err := strconv.ParseInt(c.Query("conversation_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "conversation_id 参数错误")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	userID := c.GetInt64("userID")

	messages, err := h.chatService.ListMessages(c.Request.Context(), userID, convID, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrNotConversationMember) {
			response.Forbidden(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      messages,
		"page":      page,
		"page_size": pageSize,
	})
}

// MarkReadRequest 已读请求
type MarkReadRequest struct {
	ConversationID int64 `json:"conversation_id" binding:"required"`
}

// MarkRead 清空未读数
// POST /api/v1/chat/read
func (h *Handler) MarkRead(c *gin.Context) {
	var req MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	userID := c.GetInt64("userID")

	if err := h.chatService.MarkRead(c.Request.Context(), userID, req.ConversationID); err != nil {
		if errors.Is(err, service.ErrNotConversationMember) {
			response.Forbidden(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "ok"})
}

// ============================================================
// 举报相关接口
// ============================================================

// CreateReportRequest 举报请求
type CreateReportRequest struct {
	TargetType string `json:"target_type" binding:"required"` // POST / USER / COMMENT
	TargetID   int64  `json:"target_id" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

// CreateReport 提交举报
// POST /api/v1/report
func (h *Handler) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	userID := c.GetInt64("userID")

	report, err := h.reportService.CreateReport(c.Request.Context(), userID, req.TargetType, req.TargetID, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrInvalidReportTarget) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"report_id": report.ID,
		"status":    report.Status,
	})
}

// ============================================================
// 管理后台接口
// ============================================================

// ListReports 举报列表
// GET /api/v1/admin/reports?page=1&page_size=10
func (h *Handler) ListReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	reports, total, err := h.adminService.ListReports(c.Request.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      reports,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ProcessReportRequest 举报处理请求
type ProcessReportRequest struct {
	ReportID int64  `json:"report_id" binding:"required"`
	Accepted *bool  `json:"accepted" binding:"required"` // 指针区分 false 和缺失
	Details  string `json:"details"`
}

// ProcessReport 处理举报
// POST /api/v1/admin/reports/process
//
// 【关键点】处理是一锤子买卖：状态流转、审计日志、处置动作
// 在同一个事务里，重复提交会收到"举报已处理"
func (h *Handler) ProcessReport(c *gin.Context) {
	var req ProcessReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	adminID := c.GetInt64("userID")

	err := h.adminService.ProcessReport(c.Request.Context(), adminID, req.ReportID, *req.Accepted, req.Details)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReportNotFound):
			response.BusinessError(c, response.CodeReportNotFound, err.Error())
		case errors.Is(err, service.ErrReportProcessed):
			response.BusinessError(c, response.CodeReportProcessed, err.Error())
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{"message": "处理完成"})
}
