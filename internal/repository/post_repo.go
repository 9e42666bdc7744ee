package repository

import (
	"context"
	"errors"

	"linxi/internal/model"

	"gorm.io/gorm"
)

var ErrPostNotFound = errors.New("动态不存在")

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// SoftDelete 下架动态，只打标记不删数据
func (r *PostRepository) SoftDelete(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Update("is_deleted", true)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}

	return nil
}

func (r *PostRepository) IncrementReportCount(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}

	return tx.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		UpdateColumn("report_count", gorm.Expr("report_count + ?", 1)).Error
}
