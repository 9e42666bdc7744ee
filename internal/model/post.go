package model

import (
	"time"
)

// Post 动态表
// 审核下架走软删除标记，不做物理删除
type Post struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID    int64     `gorm:"index;not null" json:"author_id"`
	Content     string    `gorm:"type:text" json:"content"`
	IsDeleted   bool      `gorm:"not null;default:false" json:"is_deleted"`
	ReportCount int       `gorm:"not null;default:0" json:"report_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Post) TableName() string {
	return "post"
}
