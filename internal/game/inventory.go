package game

import (
	"fmt"

	"github.com/wfunc/idle-game/internal/event"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"go.uber.org/zap"
)

// Inventory 资源背包子系统（resources域的唯一写入方）
// 背包本身从不拒绝写入；仓库容量门禁由生产入口Collect执行，
// 容量不足时按剩余空间部分入库。
type Inventory struct {
	counts models.ResourceCounts
	hole   *models.BlackHoleState
	saves  *save.Manager
	bus    *event.Bus
	logger *zap.Logger
	goals  *GoalEngine
}

// NewInventory 创建资源背包
func NewInventory(counts models.ResourceCounts, hole *models.BlackHoleState, saves *save.Manager, bus *event.Bus, logger *zap.Logger) *Inventory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inventory{
		counts: counts,
		hole:   hole,
		saves:  saves,
		bus:    bus,
		logger: logger,
	}
}

// bindGoals 注入目标引擎
func (inv *Inventory) bindGoals(goals *GoalEngine) {
	inv.goals = goals
}

// Counts 全部资源计数快照
func (inv *Inventory) Counts() []int64 {
	return append([]int64(nil), inv.counts...)
}

// Count 指定种类的持有量，种类越界返回0
func (inv *Inventory) Count(kind int) int64 {
	if kind < 0 || kind >= len(inv.counts) {
		return 0
	}
	return inv.counts[kind]
}

// TotalUsed 已占用的仓库格数
func (inv *Inventory) TotalUsed() int64 {
	return inv.counts.TotalUsed()
}

// FreeSpace 剩余仓库空间
func (inv *Inventory) FreeSpace() int64 {
	free := inv.hole.StorageMax - inv.counts.TotalUsed()
	if free < 0 {
		return 0
	}
	return free
}

// Collect 收集资源（生产入口，带仓库容量门禁）
// 空间不足时按剩余空间部分入库，返回实际入库量。
func (inv *Inventory) Collect(kind int, n int64) int64 {
	if n <= 0 {
		return 0
	}
	if kind < 0 || kind >= len(inv.counts) {
		inv.logger.Warn("收集了未知资源种类", zap.Int("kind", kind))
		return 0
	}

	free := inv.FreeSpace()
	if free == 0 {
		return 0
	}
	take := n
	if take > free {
		take = free
	}

	inv.counts[kind] += take
	inv.saves.MarkDirty(models.DomainResources)
	inv.bus.PublishCoalesced(event.TopicResourceChanged, kind)

	if inv.goals != nil {
		inv.goals.Add(KeyResourceCollected, float64(take))
		inv.goals.Add(fmt.Sprintf("resource_%d_collected", kind), float64(take))
	}
	return take
}

// Spend 消耗资源
// 持有量不足时整笔拒绝，资源计数永不为负。
func (inv *Inventory) Spend(kind int, n int64) bool {
	if n <= 0 {
		return false
	}
	if kind < 0 || kind >= len(inv.counts) {
		return false
	}
	if inv.counts[kind] < n {
		return false
	}

	inv.counts[kind] -= n
	inv.saves.MarkDirty(models.DomainResources)
	inv.bus.PublishCoalesced(event.TopicResourceChanged, kind)
	return true
}

// snapshot 状态快照（序列化用）
func (inv *Inventory) snapshot() models.ResourceCounts {
	return append(models.ResourceCounts(nil), inv.counts...)
}
