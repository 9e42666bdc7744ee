package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"linxi/internal/auth"
	"linxi/internal/config"
	"linxi/internal/model"
	"linxi/internal/service"
	"linxi/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type messageSender interface {
	SendMessage(ctx context.Context, senderID, receiverID int64, content, msgType string) (*model.Message, error)
}

type statusChecker interface {
	GetStatus(ctx context.Context, userID int64) (string, error)
}

// inboundFrame 客户端上行帧
type inboundFrame struct {
	Event string `json:"event"`
	Data  struct {
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
		Type       string `json:"type"`
	} `json:"data"`
}

// outboundFrame 服务端下行帧
type outboundFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ChatGateway 聊天长连接网关
//
// 投递是尽力而为：接收方在线就立即推送，推送失败只记日志；
// 发送方无论对方是否在线都会收到 message_sent 确认
type ChatGateway struct {
	hub      *Hub
	presence *Presence
	chat     messageSender
	status   statusChecker
	secret   string
	upgrader websocket.Upgrader
}

func NewChatGateway(hub *Hub, presence *Presence, chat *service.ChatService, status *service.StatusService, cfg *config.Config) *ChatGateway {
	return &ChatGateway{
		hub:      hub,
		presence: presence,
		chat:     chat,
		status:   status,
		secret:   cfg.Auth.JWTSecret,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS 建连入口
// GET /ws/chat?token=xxx
func (g *ChatGateway) HandleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}

	claims, err := auth.ParseToken(g.secret, token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ChatGateway] 升级 websocket 失败: %v", err)
		return
	}

	client := NewClient(idgen.GenerateConnID(), claims.UserID, conn)

	if old := g.hub.Register(client); old != nil {
		// 同一用户新连接顶掉旧连接
		old.Close()
	}
	if err := g.presence.Bind(c.Request.Context(), client.UserID, client.ID); err != nil {
		log.Printf("[ChatGateway] 登记在线状态失败: userID=%d, err=%v", client.UserID, err)
	}

	log.Printf("[ChatGateway] 连接建立: connID=%s, userID=%d", client.ID, client.UserID)
	g.readLoop(client)
}

func (g *ChatGateway) readLoop(client *Client) {
	defer func() {
		g.hub.Unregister(client.UserID, client.ID)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := g.presence.Unbind(ctx, client.UserID, client.ID); err != nil {
			log.Printf("[ChatGateway] 解除在线登记失败: userID=%d, err=%v", client.UserID, err)
		}
		cancel()
		client.Close()
		log.Printf("[ChatGateway] 连接关闭: connID=%s, userID=%d", client.ID, client.UserID)
	}()

	for {
		var frame inboundFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Event {
		case "send_message":
			g.handleSendMessage(client, &frame)
		default:
			client.Send(outboundFrame{Event: "error", Data: gin.H{"message": "未知事件"}})
		}
	}
}

func (g *ChatGateway) handleSendMessage(client *Client, frame *inboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 被封禁的账号不允许发消息
	status, err := g.status.GetStatus(ctx, client.UserID)
	if err == nil && status == model.UserStatusBanned {
		client.Send(outboundFrame{Event: "error", Data: gin.H{"message": "账号已被封禁"}})
		return
	}

	message, err := g.chat.SendMessage(ctx, client.UserID, frame.Data.ReceiverID, frame.Data.Content, frame.Data.Type)
	if err != nil {
		msg := "发送失败"
		if errors.Is(err, service.ErrInsufficientBalance) {
			msg = "余额不足，无法发送消息"
		}
		client.Send(outboundFrame{Event: "error", Data: gin.H{"message": msg}})
		return
	}

	payload := gin.H{
		"id":              message.ID,
		"conversation_id": message.ConversationID,
		"sender_id":       message.SenderID,
		"content":         message.Content,
		"type":            message.Type,
		"created_at":      message.CreatedAt,
	}

	// 接收方在线就即时推送，推不动不影响发送方的确认
	if receiver, ok := g.hub.Get(frame.Data.ReceiverID); ok {
		if err := receiver.Send(outboundFrame{Event: "receive_message", Data: payload}); err != nil {
			log.Printf("[ChatGateway] 推送消息失败: receiverID=%d, err=%v", frame.Data.ReceiverID, err)
		}
	}

	client.Send(outboundFrame{Event: "message_sent", Data: payload})
}
