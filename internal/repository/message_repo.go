package repository

import (
	"context"

	"linxi/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.Message) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(msg).Error
}

// CountBySender 统计某人在某会话里已发出的消息数，计费判断用
func (r *MessageRepository) CountBySender(ctx context.Context, convID, senderID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id = ?", convID, senderID).
		Count(&count).Error
	return count, err
}

func (r *MessageRepository) ListByConversation(ctx context.Context, convID int64, page, pageSize int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	return messages, err
}
