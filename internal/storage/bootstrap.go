package storage

import (
	"context"
	"io/fs"

	apperrors "github.com/wfunc/idle-game/internal/errors"
	"go.uber.org/zap"
)

// BootstrapLoader 引导加载器
// 首次运行或存档损坏时退回随包内置的默认数据文件，
// 对应首次启动把内置数据拷入可写存储的引导步骤。
type BootstrapLoader struct {
	store    Store
	defaults fs.FS // 内置默认数据，<domain>.json；为nil时没有内置数据
	logger   *zap.Logger
}

// NewBootstrapLoader 创建引导加载器
func NewBootstrapLoader(store Store, defaults fs.FS, logger *zap.Logger) *BootstrapLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapLoader{
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

// LoadOrDefault 加载存档字节，读不到时退回内置默认数据
// 返回nil表示既没有存档也没有内置数据，调用方用代码默认值初始化。
// 读取错误与不存在同等对待：记日志、回退、不重试。
func (l *BootstrapLoader) LoadOrDefault(ctx context.Context, domain string) []byte {
	data, err := l.store.Read(ctx, domain)
	if err == nil && len(data) > 0 {
		return data
	}

	if err != nil && !apperrors.Is(err, apperrors.ErrKeyNotFound) {
		l.logger.Warn("存档读取失败，回退默认数据",
			zap.String("domain", domain),
			zap.Error(err))
	}

	return l.bundledDefault(domain)
}

// bundledDefault 读取内置默认数据
func (l *BootstrapLoader) bundledDefault(domain string) []byte {
	if l.defaults == nil {
		return nil
	}

	data, err := fs.ReadFile(l.defaults, domain+".json")
	if err != nil {
		return nil
	}

	l.logger.Info("使用内置默认存档",
		zap.String("domain", domain),
		zap.Int("size", len(data)))
	return data
}
