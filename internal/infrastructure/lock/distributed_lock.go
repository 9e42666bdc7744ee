package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么充值回调需要分布式锁？】
//
// 支付网关是至少一次投递，同一笔订单的回调可能并发到达：
//
//   回调1: 查流水 status=PENDING -> 入账 -> 标记 COMPLETED
//   回调2: 查流水 status=PENDING -> 入账 -> 标记 COMPLETED   重复入账！
//
// 加锁后同一订单的回调串行执行，第二个回调拿到锁时流水已是 COMPLETED，
// 直接走幂等返回。状态流转本身还有条件更新兜底，锁是第一道闸。
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：Lua 脚本先比对 value 再删除，保证原子性
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】比对 value 再删除：A 的锁过期后被 B 持有时，
// A 迟到的 Unlock 不能删掉 B 的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewCallbackLock 创建充值回调锁（按外部订单号维度）
//
// 按订单号而不是按用户加锁：不同订单的回调可以并发处理，
// 只有同一笔订单的重复回调需要串行
func NewCallbackLock(client *redis.Client, outTradeNo string, holder string) *DistributedLock {
	key := fmt.Sprintf("recharge:lock:order:%s", outTradeNo)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
