package save

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/idle-game/internal/config"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager 存档管理器，持有全部域的协调器
type Manager struct {
	mu           sync.RWMutex
	coordinators map[string]*Coordinator
	order        []string // 注册顺序，遍历时保持稳定
	logger       *zap.Logger
}

// NewManager 创建存档管理器
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		coordinators: make(map[string]*Coordinator),
		logger:       logger,
	}
}

// Register 注册一个域协调器，同域重复注册覆盖旧的
func (m *Manager) Register(c *Coordinator) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.coordinators[c.domain]; !ok {
		m.order = append(m.order, c.domain)
	}
	m.coordinators[c.domain] = c
}

// Get 按域名取协调器
func (m *Manager) Get(domain string) (*Coordinator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coordinators[domain]
	return c, ok
}

// MarkDirty 标脏指定域，未注册的域只记日志
func (m *Manager) MarkDirty(domain string) {
	c, ok := m.Get(domain)
	if !ok {
		m.logger.Warn("标脏了未注册的存档域", zap.String("domain", domain))
		return
	}
	c.MarkDirty()
}

// Flush 强制落盘指定域
func (m *Manager) Flush(ctx context.Context, domain string) error {
	c, ok := m.Get(domain)
	if !ok {
		return apperrors.Newf(apperrors.ErrSaveDomainUnknown, "域 %s", domain)
	}
	return c.Flush(ctx)
}

// FlushAll 并发强制落盘所有域（挂起/退出路径）
// 各域互不阻塞，返回首个出错域的错误；失败域的脏标记
// 由协调器自行恢复，进程若存活会继续重试。
func (m *Manager) FlushAll(ctx context.Context) error {
	start := time.Now()
	all := m.snapshot()

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range all {
		c := c
		g.Go(func() error {
			return c.Flush(ctx)
		})
	}
	err := g.Wait()

	if err != nil {
		m.logger.Error("全量落盘未完全成功",
			zap.Int("domains", len(all)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	m.logger.Info("全量落盘完成",
		zap.Int("domains", len(all)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// DirtyDomains 当前仍有未落盘变更的域列表
func (m *Manager) DirtyDomains() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, domain := range m.order {
		if m.coordinators[domain].Dirty() {
			out = append(out, domain)
		}
	}
	return out
}

// ApplyConfig 应用新的存档配置（热更新去抖间隔）
func (m *Manager) ApplyConfig(cfg *config.SaveConfig) {
	if cfg == nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, domain := range m.order {
		m.coordinators[domain].SetDebounce(cfg.DebounceFor(domain))
	}
	m.logger.Info("存档配置已更新",
		zap.Duration("debounce_interval", cfg.DebounceInterval),
		zap.Int("domain_overrides", len(cfg.Domains)))
}

// snapshot 拷贝当前协调器列表，落盘期间注册互不干扰
func (m *Manager) snapshot() []*Coordinator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Coordinator, 0, len(m.order))
	for _, domain := range m.order {
		out = append(out, m.coordinators[domain])
	}
	return out
}
