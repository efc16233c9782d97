package world

import (
	"sync"
	"time"
)

// Clock 时间源抽象。
// 调度判定全部经由注入的时钟读取时间，测试中可替换为固定时钟。
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 当前系统时间
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock 可手动推进的固定时钟（测试用）
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock 创建固定时钟
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// Now 当前固定时间
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 推进时钟
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set 设置时钟
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
