package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== RateLimiter 冷却限流器 ====================

// RateLimiter 按 key 记录上次放行时间，冷却期内的请求被拒绝
// 用于保护 Gemini 配额：同一客户端在间隔内只能触发一次 AI 调用
type RateLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewRateLimiter 创建限流器
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check 检查并在放行时记录时间
func (r *RateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 清除指定 key
func (r *RateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key ====================

// AIKind AI 调用类型
type AIKind string

const (
	AIKindSearch      AIKind = "search"
	AIKindDescription AIKind = "description"
	AIKindImage       AIKind = "image"
	AIKindBatch       AIKind = "batch"
	AIKindChat        AIKind = "chat"
)

// ClientKey 客户端 + 调用类型
func ClientKey(clientIP string, kind AIKind) string {
	return fmt.Sprintf("client:%s:%s", clientIP, kind)
}

// DefaultIntervals 各类 AI 调用的默认冷却时间
var DefaultIntervals = map[AIKind]time.Duration{
	AIKindSearch:      time.Second,
	AIKindDescription: 3 * time.Second,
	AIKindImage:       5 * time.Second,
	AIKindBatch:       30 * time.Second,
	AIKindChat:        time.Second,
}

// GetInterval 默认冷却时间，未配置的类型为 2 秒
func GetInterval(kind AIKind) time.Duration {
	if interval, ok := DefaultIntervals[kind]; ok {
		return interval
	}
	return 2 * time.Second
}
