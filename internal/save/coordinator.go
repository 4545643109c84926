package save

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/idle-game/internal/clock"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/storage"
	"go.uber.org/zap"
)

// Serializer 域状态序列化回调，落盘时调用
type Serializer func() ([]byte, error)

// Coordinator 存档协调器（每个存档域一个）
// 把一串密集的MarkDirty合并成每个活动窗口一次写入，同时保证
// 已标脏的变更绝不静默丢失：写失败恢复脏标记等待重试，
// 挂起/退出路径用Flush立即落盘。去抖窗口按未缩放壁钟计时，
// 游戏暂停时照常到期。
type Coordinator struct {
	domain    string
	store     storage.Store
	scheduler *clock.Scheduler
	logger    *zap.Logger
	serialize Serializer

	mu            sync.Mutex
	debounce      time.Duration
	dirty         bool
	writeInFlight bool
	pending       *clock.Task
	writes        int64 // 成功写入次数
	failures      int64 // 失败写入次数
}

// NewCoordinator 创建存档协调器
func NewCoordinator(domain string, store storage.Store, scheduler *clock.Scheduler, debounce time.Duration, serialize Serializer, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Coordinator{
		domain:    domain,
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		serialize: serialize,
		debounce:  debounce,
	}
}

// Domain 存档域名
func (c *Coordinator) Domain() string {
	return c.domain
}

// MarkDirty 标记域状态已变更
// 没有已调度的续延时调度一个，在去抖间隔后落盘；
// 窗口内的后续标脏只置位，不追加调度。
func (c *Coordinator) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dirty = true
	if c.pending == nil {
		c.pending = c.scheduler.Schedule(c.debounce, c.onDebounce)
	}
}

// Dirty 是否有未落盘的变更
func (c *Coordinator) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Writes 成功写入次数
func (c *Coordinator) Writes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Failures 失败写入次数
func (c *Coordinator) Failures() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// SetDebounce 更新去抖间隔（配置热更新）
// 只影响之后调度的窗口，当前窗口按旧间隔到期。
func (c *Coordinator) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.debounce = d
	c.mu.Unlock()
}

// Flush 强制落盘（挂起/退出/显式存档点）
// 取消待命的去抖续延；只要脏或写入中就立即执行写入。
// 写失败时脏标记已恢复，错误返回给生命周期调用方记录，
// 普通玩法变更路径永远看不到存储错误。
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.pending != nil {
		c.pending.Cancel()
		c.pending = nil
	}
	needWrite := c.dirty || c.writeInFlight
	c.mu.Unlock()

	if !needWrite {
		return nil
	}
	return c.performWrite(ctx)
}

// onDebounce 去抖续延到期
func (c *Coordinator) onDebounce() {
	c.mu.Lock()
	c.pending = nil
	if !c.dirty {
		// 窗口期间已被强制落盘，无事可做
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// 定时路径的错误已在performWrite内记录并安排重试
	_ = c.performWrite(context.Background())
}

// performWrite 执行一次域写入
// 写入期间不持锁，期间新到的标脏会在写入完成后再调度一个窗口补写。
func (c *Coordinator) performWrite(ctx context.Context) error {
	c.mu.Lock()
	if c.writeInFlight {
		// 已有写入进行中；完成时会按脏标记补写，这次请求顺延
		c.mu.Unlock()
		return nil
	}
	c.writeInFlight = true
	c.dirty = false
	c.mu.Unlock()

	start := time.Now()
	data, err := c.serialize()
	if err == nil {
		err = c.store.Write(ctx, c.domain, data)
	}

	c.mu.Lock()
	c.writeInFlight = false

	if err != nil {
		// 写失败：恢复脏标记，下个去抖周期或下次强制落盘时重试
		c.dirty = true
		c.failures++
		if c.pending == nil {
			c.pending = c.scheduler.Schedule(c.debounce, c.onDebounce)
		}
		c.mu.Unlock()

		c.logger.Error("存档写入失败，等待重试",
			zap.String("domain", c.domain),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return apperrors.Wrapf(err, apperrors.ErrSaveFlush, "域 %s", c.domain)
	}

	c.writes++
	redirty := c.dirty
	if redirty && c.pending == nil {
		// 写入执行期间又有新变更，立即安排下一个窗口
		c.pending = c.scheduler.Schedule(c.debounce, c.onDebounce)
	}
	c.mu.Unlock()

	c.logger.Debug("存档写入完成",
		zap.String("domain", c.domain),
		zap.Int("size", len(data)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("redirty", redirty))
	return nil
}
