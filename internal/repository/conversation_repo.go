package repository

import (
	"context"
	"errors"

	"linxi/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrConversationNotFound = errors.New("会话不存在")

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) GetByPair(ctx context.Context, user1ID, user2ID int64) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// GetOrCreate 按规整后的用户对取会话，不存在则创建
// OnConflict DoNothing + 再查一次，并发首次互发消息时也只会有一条会话
func (r *ConversationRepository) GetOrCreate(ctx context.Context, user1ID, user2ID int64) (*model.Conversation, error) {
	conv, err := r.GetByPair(ctx, user1ID, user2ID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	newConv := &model.Conversation{
		User1ID: user1ID,
		User2ID: user2ID,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(newConv).Error
	if err != nil {
		return nil, err
	}

	return r.GetByPair(ctx, user1ID, user2ID)
}

// ApplyMessage 更新会话摘要并给接收方加未读
// senderIsUser1 为 true 时加 unread_count2，反之加 unread_count1
func (r *ConversationRepository) ApplyMessage(ctx context.Context, tx *gorm.DB, convID int64, msg *model.Message, summary string, senderIsUser1 bool) error {
	if tx == nil {
		tx = r.db
	}

	unreadColumn := "unread_count1"
	if senderIsUser1 {
		unreadColumn = "unread_count2"
	}

	return tx.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]interface{}{
			"last_message_id":      msg.ID,
			"last_message_content": summary,
			"last_message_time":    msg.CreatedAt,
			unreadColumn:           gorm.Expr(unreadColumn+" + ?", 1),
		}).Error
}

// ResetUnread 清掉某一侧的未读数（已读回执）
func (r *ConversationRepository) ResetUnread(ctx context.Context, convID int64, forUser1 bool) error {
	column := "unread_count2"
	if forUser1 {
		column = "unread_count1"
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", convID).
		Update(column, 0).Error
}

func (r *ConversationRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	var conversations []*model.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_time DESC").
		Find(&conversations).Error
	return conversations, err
}
