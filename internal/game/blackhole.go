package game

import (
	"github.com/wfunc/idle-game/internal/catalog"
	"github.com/wfunc/idle-game/internal/event"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"go.uber.org/zap"
)

// BlackHole 黑洞子系统（blackhole域的唯一写入方）
// 两条升级线：仓库容量与收益。0级取配置的基础值，之后逐档
// 消耗资源升级，档位数值来自目录表。
type BlackHole struct {
	state  *models.BlackHoleState
	cat    *catalog.Catalog
	inv    *Inventory
	saves  *save.Manager
	bus    *event.Bus
	logger *zap.Logger
	goals  *GoalEngine
}

// NewBlackHole 创建黑洞子系统
func NewBlackHole(state *models.BlackHoleState, cat *catalog.Catalog, inv *Inventory, saves *save.Manager, bus *event.Bus, logger *zap.Logger) *BlackHole {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlackHole{
		state:  state,
		cat:    cat,
		inv:    inv,
		saves:  saves,
		bus:    bus,
		logger: logger,
	}
}

// bindGoals 注入目标引擎
func (b *BlackHole) bindGoals(goals *GoalEngine) {
	b.goals = goals
}

// Income 当前收益
func (b *BlackHole) Income() float64 {
	return b.state.Income
}

// StorageMax 当前仓库容量
func (b *BlackHole) StorageMax() int64 {
	return b.state.StorageMax
}

// IncomeLevel 收益等级
func (b *BlackHole) IncomeLevel() int {
	return b.state.IncomeLevel
}

// StorageLevel 仓库等级
func (b *BlackHole) StorageLevel() int {
	return b.state.StorageLevel
}

// UpgradeStorage 升级仓库容量
// 目录中没有下一档位视为已达最高级。
func (b *BlackHole) UpgradeStorage() error {
	next := b.state.StorageLevel + 1
	up, ok := b.cat.StorageUpgrade(next)
	if !ok {
		return apperrors.Newf(apperrors.ErrUpgradeStep, "仓库档位 %d 不存在", next)
	}
	if err := b.payCosts(up.Costs); err != nil {
		return err
	}

	b.state.StorageLevel = next
	b.state.StorageMax = up.StorageMax
	b.saves.MarkDirty(models.DomainBlackHole)
	b.bus.PublishCoalesced(event.TopicStorageChanged, *b.state)

	if b.goals != nil {
		b.goals.SetValue(KeyStorageLevel, float64(next))
	}
	b.logger.Info("仓库升级完成",
		zap.Int("level", next),
		zap.Int64("storage_max", up.StorageMax))
	return nil
}

// UpgradeIncome 升级收益
func (b *BlackHole) UpgradeIncome() error {
	next := b.state.IncomeLevel + 1
	up, ok := b.cat.IncomeUpgrade(next)
	if !ok {
		return apperrors.Newf(apperrors.ErrUpgradeStep, "收益档位 %d 不存在", next)
	}
	if err := b.payCosts(up.Costs); err != nil {
		return err
	}

	b.state.IncomeLevel = next
	b.state.Income = up.Income
	b.saves.MarkDirty(models.DomainBlackHole)
	b.bus.PublishCoalesced(event.TopicStorageChanged, *b.state)

	if b.goals != nil {
		b.goals.SetValue(KeyIncomeLevel, float64(next))
	}
	b.logger.Info("收益升级完成",
		zap.Int("level", next),
		zap.Float64("income", up.Income))
	return nil
}

// payCosts 校验并扣除升级消耗
// 先整体校验再逐项扣除，任一项不足则整笔不动。
func (b *BlackHole) payCosts(costs []models.ItemCost) error {
	for _, cost := range costs {
		if b.inv.Count(cost.ItemID) < cost.Count {
			return apperrors.Newf(apperrors.ErrInsufficientItems,
				"资源 %d 持有 %d 需要 %d", cost.ItemID, b.inv.Count(cost.ItemID), cost.Count)
		}
	}
	for _, cost := range costs {
		b.inv.Spend(cost.ItemID, cost.Count)
	}
	return nil
}

// snapshot 状态快照（序列化用）
func (b *BlackHole) snapshot() models.BlackHoleState {
	return *b.state
}
