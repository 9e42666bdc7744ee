package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"linxi/internal/infrastructure/cache"
)

const presenceKeyPrefix = "socket:user:"

var ErrNotOnline = errors.New("用户不在线")

// Presence 在线目录：用户ID -> 当前连接ID
//
// 条目跟随连接生命周期，连接建立时写入、断开时删除，不设 TTL。
// 进程异常退出留下的孤儿条目由后台清理任务兜底（见 job.PresenceSweeper），
// 指向死连接的条目投递不到消息，只影响推送、不影响发送方收 ack。
type Presence struct {
	kv cache.KV
}

func NewPresence(kv cache.KV) *Presence {
	return &Presence{kv: kv}
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("%s%d", presenceKeyPrefix, userID)
}

// Bind 连接认证通过后登记
func (p *Presence) Bind(ctx context.Context, userID int64, connID string) error {
	return p.kv.Set(ctx, presenceKey(userID), connID, 0)
}

// Unbind 断开时解除登记
// 只在当前值仍是自己的 connID 时删除：用户快速重连后，
// 旧连接迟到的 Unbind 不能把新连接的登记删掉
func (p *Presence) Unbind(ctx context.Context, userID int64, connID string) error {
	current, err := p.kv.Get(ctx, presenceKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil
		}
		return err
	}
	if current != connID {
		return nil
	}
	return p.kv.Del(ctx, presenceKey(userID))
}

// Lookup 查某个用户当前的连接ID
func (p *Presence) Lookup(ctx context.Context, userID int64) (string, error) {
	connID, err := p.kv.Get(ctx, presenceKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return "", ErrNotOnline
		}
		return "", err
	}
	return connID, nil
}

// Entries 全量在线登记，清理任务用
func (p *Presence) Entries(ctx context.Context) (map[int64]string, error) {
	keys, err := p.kv.Scan(ctx, presenceKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	entries := make(map[int64]string, len(keys))
	for _, key := range keys {
		userID, err := strconv.ParseInt(strings.TrimPrefix(key, presenceKeyPrefix), 10, 64)
		if err != nil {
			continue
		}
		connID, err := p.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		entries[userID] = connID
	}
	return entries, nil
}
