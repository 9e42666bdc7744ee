package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"linxi/internal/infrastructure/cache"
	"linxi/internal/repository"
)

const statusKeyPrefix = "user:status:"

type userStatusReader interface {
	GetStatus(ctx context.Context, userID int64) (string, error)
}

// StatusService 用户封禁状态的读穿缓存
//
// 每个已登录请求进来都要查一次状态，直接打数据库扛不住，
// 所以挂一层带 TTL 的 Redis 投影。数据库永远是权威数据源：
// 缓存只是加速，被封禁用户的即时生效靠 Override 主动覆盖。
type StatusService struct {
	kv    cache.KV
	users userStatusReader
	ttl   time.Duration
}

func NewStatusService(kv cache.KV, userRepo *repository.UserRepository, ttlSeconds int) *StatusService {
	if ttlSeconds <= 0 {
		ttlSeconds = 3600
	}
	return &StatusService{
		kv:    kv,
		users: userRepo,
		ttl:   time.Duration(ttlSeconds) * time.Second,
	}
}

func statusKey(userID int64) string {
	return fmt.Sprintf("%s%d", statusKeyPrefix, userID)
}

// GetStatus 读穿：缓存命中直接返回，未命中回源数据库并回填
func (s *StatusService) GetStatus(ctx context.Context, userID int64) (string, error) {
	status, err := s.kv.Get(ctx, statusKey(userID))
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		// 缓存故障降级回源，不让封禁检查整个挂掉
		log.Printf("[StatusService] 读取状态缓存失败: userID=%d, err=%v", userID, err)
	}

	status, err = s.users.GetStatus(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := s.kv.Set(ctx, statusKey(userID), status, s.ttl); err != nil {
		log.Printf("[StatusService] 回填状态缓存失败: userID=%d, err=%v", userID, err)
	}

	return status, nil
}

// Override 无条件覆盖缓存项（封禁后立即生效）
//
// 【关键点】这里不能走"删缓存等回源"：删除和下一次回源之间
// 如果插进来一个旧事务的读，旧状态会被重新填回缓存。
// 直接 SET 新状态没有这个窗口。
func (s *StatusService) Override(ctx context.Context, userID int64, status string) error {
	return s.kv.Set(ctx, statusKey(userID), status, s.ttl)
}
