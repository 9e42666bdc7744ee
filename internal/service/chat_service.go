package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linxi/internal/model"
	"linxi/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 同一会话里每个发送方有 3 条免费消息，之后每条收 1 金币
const (
	freeMessageCount = 3
	chatFeeCoins     = 1
)

var ErrNotConversationMember = errors.New("无权访问该会话")

type walletCharger interface {
	Consume(ctx context.Context, userID int64, amount decimal.Decimal, txType, remark string) (*model.CoinTransaction, error)
}

type conversationStore interface {
	GetOrCreate(ctx context.Context, user1ID, user2ID int64) (*model.Conversation, error)
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	ApplyMessage(ctx context.Context, tx *gorm.DB, convID int64, msg *model.Message, summary string, senderIsUser1 bool) error
	ResetUnread(ctx context.Context, convID int64, forUser1 bool) error
	ListByUserID(ctx context.Context, userID int64) ([]*model.Conversation, error)
}

type messageStore interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.Message) error
	CountBySender(ctx context.Context, convID, senderID int64) (int64, error)
	ListByConversation(ctx context.Context, convID int64, page, pageSize int) ([]*model.Message, error)
}

type userReader interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
}

// ChatService 私聊消息与计费
type ChatService struct {
	db            *gorm.DB
	wallet        walletCharger
	conversations conversationStore
	messages      messageStore
	users         userReader
}

func NewChatService(db *gorm.DB, wallet *WalletService) *ChatService {
	return &ChatService{
		db:            db,
		wallet:        wallet,
		conversations: repository.NewConversationRepository(db),
		messages:      repository.NewMessageRepository(db),
		users:         repository.NewUserRepository(db),
	}
}

// SendMessage 发送私聊消息
//
// 计费规则：发送方在本会话内已发满 3 条后，每条扣 1 金币。
// 扣费失败（余额不足）时整个发送中止，消息和会话都不会有任何变化。
// 消息落库和会话摘要/未读数更新在同一个事务里。
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID int64, content, msgType string) (*model.Message, error) {
	user1ID, user2ID := model.CanonicalPair(senderID, receiverID)

	conv, err := s.conversations.GetOrCreate(ctx, user1ID, user2ID)
	if err != nil {
		return nil, fmt.Errorf("获取会话失败: %w", err)
	}

	sentCount, err := s.messages.CountBySender(ctx, conv.ID, senderID)
	if err != nil {
		return nil, fmt.Errorf("统计消息数失败: %w", err)
	}

	// 好友免费尚未上线，目前一律按陌生人计费
	isFriend := false

	if !isFriend && sentCount >= freeMessageCount {
		_, err := s.wallet.Consume(ctx, senderID,
			decimal.NewFromInt(chatFeeCoins),
			model.TransactionTypeConsume,
			fmt.Sprintf("聊天扣费 对方:%d", receiverID))
		if err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return nil, ErrInsufficientBalance
			}
			return nil, fmt.Errorf("聊天扣费失败: %w", err)
		}
	}

	message := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		Type:           msgType,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.messages.Create(ctx, tx, message); err != nil {
			return fmt.Errorf("保存消息失败: %w", err)
		}

		summary := content
		if msgType == model.MessageTypeImage {
			summary = model.ImageSummaryPlaceholder
		}

		if err := s.conversations.ApplyMessage(ctx, tx, conv.ID, message, summary, senderID == conv.User1ID); err != nil {
			return fmt.Errorf("更新会话失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return message, nil
}

// ConversationView 会话列表项
type ConversationView struct {
	ID                 int64              `json:"id"`
	OtherUser          *model.UserSummary `json:"other_user"`
	LastMessageContent string             `json:"last_message_content"`
	LastMessageTime    *time.Time         `json:"last_message_time,omitempty"`
	UnreadCount        int                `json:"unread_count"`
}

// GetConversations 会话列表，带对方信息和自己这一侧的未读数
func (s *ChatService) GetConversations(ctx context.Context, userID int64) ([]*ConversationView, error) {
	conversations, err := s.conversations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		isUser1 := conv.User1ID == userID

		otherID := conv.User1ID
		unread := conv.UnreadCount2
		if isUser1 {
			otherID = conv.User2ID
			unread = conv.UnreadCount1
		}

		view := &ConversationView{
			ID:                 conv.ID,
			LastMessageContent: conv.LastMessageContent,
			LastMessageTime:    conv.LastMessageTime,
			UnreadCount:        unread,
		}

		if other, err := s.users.GetByID(ctx, otherID); err == nil {
			view.OtherUser = &model.UserSummary{
				ID:        other.ID,
				Nickname:  other.Nickname,
				AvatarURL: other.AvatarURL,
				Status:    other.Status,
			}
		}

		views = append(views, view)
	}

	return views, nil
}

// ListMessages 拉取会话历史，只允许会话双方查看
func (s *ChatService) ListMessages(ctx context.Context, userID, convID int64, page, pageSize int) ([]*model.Message, error) {
	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv.User1ID != userID && conv.User2ID != userID {
		return nil, ErrNotConversationMember
	}

	return s.messages.ListByConversation(ctx, convID, page, pageSize)
}

// MarkRead 清空自己这一侧的未读数
func (s *ChatService) MarkRead(ctx context.Context, userID, convID int64) error {
	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return err
	}
	if conv.User1ID != userID && conv.User2ID != userID {
		return ErrNotConversationMember
	}

	return s.conversations.ResetUnread(ctx, convID, conv.User1ID == userID)
}
