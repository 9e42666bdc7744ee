package job

import (
	"context"
	"log"
	"time"

	"linxi/internal/gateway"
)

// PresenceSweeper 在线目录清理任务
//
// 进程被强杀时连接的 defer 不会执行，Redis 里会留下指向
// 死连接的登记。这里定期把目录和本机连接注册表对一遍，
// 删掉已经没有活连接的条目
type PresenceSweeper struct {
	hub      *gateway.Hub
	presence *gateway.Presence
	stopCh   chan struct{}
	interval time.Duration
}

func NewPresenceSweeper(hub *gateway.Hub, presence *gateway.Presence) *PresenceSweeper {
	return &PresenceSweeper{
		hub:      hub,
		presence: presence,
		stopCh:   make(chan struct{}),
		interval: 30 * time.Second,
	}
}

func (j *PresenceSweeper) Start(ctx context.Context) {
	log.Println("[PresenceSweeper] 在线目录清理任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[PresenceSweeper] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[PresenceSweeper] 任务停止")
			return
		case <-ticker.C:
			j.sweepOrphans(ctx)
		}
	}
}

func (j *PresenceSweeper) Stop() {
	close(j.stopCh)
}

func (j *PresenceSweeper) sweepOrphans(ctx context.Context) {
	entries, err := j.presence.Entries(ctx)
	if err != nil {
		log.Printf("[PresenceSweeper] 读取在线目录失败: %v", err)
		return
	}

	sweptCount := 0
	for userID, connID := range entries {
		if j.hub.HasConn(connID) {
			continue
		}
		if err := j.presence.Unbind(ctx, userID, connID); err != nil {
			log.Printf("[PresenceSweeper] 清理孤儿条目失败: userID=%d, err=%v", userID, err)
			continue
		}
		sweptCount++
		log.Printf("[PresenceSweeper] 已清理孤儿条目: userID=%d, connID=%s", userID, connID)
	}

	if sweptCount > 0 {
		log.Printf("[PresenceSweeper] 本次清理 %d 个孤儿条目", sweptCount)
	}
}
