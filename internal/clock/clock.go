package clock

import (
	"sync"
	"time"
)

// Clock 壁钟接口
// 调度、存档去抖与加速结算全部使用未缩放的真实时间，
// 与游戏内的时间缩放（暂停、慢放）无关。
type Clock interface {
	// Now 当前壁钟时间
	Now() time.Time
	// NowMs 当前壁钟时间（Unix毫秒）
	NowMs() int64
}

// RealClock 真实时钟
type RealClock struct{}

// Now 当前壁钟时间
func (RealClock) Now() time.Time { return time.Now() }

// NowMs 当前壁钟时间（Unix毫秒）
func (RealClock) NowMs() int64 { return time.Now().UnixMilli() }

// ManualClock 手动时钟（测试用，确定性推进时间）
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock 创建手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

// Now 当前壁钟时间
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// NowMs 当前壁钟时间（Unix毫秒）
func (c *ManualClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t.UnixMilli()
}

// Set 设置当前时间
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance 推进时间
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
