package model

import (
	"time"
)

const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
)

// ImageSummaryPlaceholder 图片消息在会话摘要里的占位文案
const ImageSummaryPlaceholder = "[图片]"

// Conversation 会话表
// 一对用户只有一条会话记录，约定 user1_id < user2_id 保证唯一性
type Conversation struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID            int64      `gorm:"uniqueIndex:uk_conversation_pair;not null" json:"user1_id"`
	User2ID            int64      `gorm:"uniqueIndex:uk_conversation_pair;not null" json:"user2_id"`
	LastMessageID      *int64     `json:"last_message_id,omitempty"`
	LastMessageContent string     `gorm:"type:varchar(256)" json:"last_message_content"`
	LastMessageTime    *time.Time `gorm:"index" json:"last_message_time,omitempty"`
	UnreadCount1       int        `gorm:"not null;default:0" json:"unread_count1"` // user1 的未读数
	UnreadCount2       int        `gorm:"not null;default:0" json:"unread_count2"` // user2 的未读数
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversation"
}

// CanonicalPair 把任意两个用户ID规整为 (小, 大)
func CanonicalPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Message 消息表，只追加不修改
type Message struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID int64     `gorm:"index;not null" json:"conversation_id"`
	SenderID       int64     `gorm:"index;not null" json:"sender_id"`
	ReceiverID     int64     `gorm:"not null" json:"receiver_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Type           string    `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Message) TableName() string {
	return "message"
}
