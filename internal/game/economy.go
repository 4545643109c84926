package game

import (
	"github.com/wfunc/idle-game/internal/event"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"go.uber.org/zap"
)

// Economy 经济子系统（economy域的唯一写入方）
// 金币做饱和运算，余额永远落在[0, GoldMax]；里程单调不减；
// 速度 = 基准速度 × 加速倍率，倍率只有加速控制器会改写。
type Economy struct {
	state  *models.PlayerState
	saves  *save.Manager
	bus    *event.Bus
	logger *zap.Logger
	goals  *GoalEngine

	multiplier float64
}

// NewEconomy 创建经济子系统
func NewEconomy(state *models.PlayerState, saves *save.Manager, bus *event.Bus, logger *zap.Logger) *Economy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Economy{
		state:      state,
		saves:      saves,
		bus:        bus,
		logger:     logger,
		multiplier: 1,
	}
}

// bindGoals 注入目标引擎（装配期两段式接线）
func (e *Economy) bindGoals(goals *GoalEngine) {
	e.goals = goals
}

// Gold 当前金币余额
func (e *Economy) Gold() int64 {
	return e.state.Gold
}

// DistanceKm 累计里程（公里）
func (e *Economy) DistanceKm() float64 {
	return e.state.DistanceKm
}

// CurrentCharacterID 当前角色ID
func (e *Economy) CurrentCharacterID() int {
	return e.state.CurrentCharacterID
}

// BaseSpeed 基准速度（不含加速倍率）
func (e *Economy) BaseSpeed() float64 {
	return e.state.Speed
}

// CurrentSpeed 当前速度（基准 × 倍率）
func (e *Economy) CurrentSpeed() float64 {
	return e.state.Speed * e.multiplier
}

// Multiplier 当前速度倍率
func (e *Economy) Multiplier() float64 {
	return e.multiplier
}

// AddGold 加金币（饱和运算）
// 入账按实际到账量转发给目标引擎；余额已封顶时不产生任何变化。
// 负增量做饱和扣减，不计入收入也不计入花费次数。
func (e *Economy) AddGold(delta int64) {
	if delta == 0 {
		return
	}
	old := e.state.Gold
	next := models.SaturatingAddGold(old, delta)
	if next == old {
		return
	}
	e.state.Gold = next
	e.saves.MarkDirty(models.DomainEconomy)
	e.bus.PublishCoalesced(event.TopicGoldChanged, next)

	if credited := next - old; credited > 0 && e.goals != nil {
		e.goals.Add(KeyGold, float64(credited))
	}
}

// SpendGold 花金币（余额门禁）
// 余额不足时整笔拒绝，返回false；成功时计一次花费信号。
func (e *Economy) SpendGold(amount int64) bool {
	if amount <= 0 {
		return false
	}
	if e.state.Gold < amount {
		e.logger.Debug("金币不足",
			zap.Int64("balance", e.state.Gold),
			zap.Int64("amount", amount))
		return false
	}
	e.state.Gold -= amount
	e.saves.MarkDirty(models.DomainEconomy)
	e.bus.PublishCoalesced(event.TopicGoldChanged, e.state.Gold)

	if e.goals != nil {
		e.goals.Add(KeyGoldSpent, 1)
	}
	return true
}

// AdvanceDistance 推进里程
// 里程单调不减，非正增量忽略。
func (e *Economy) AdvanceDistance(km float64) {
	if km <= 0 {
		return
	}
	e.state.DistanceKm += km
	e.saves.MarkDirty(models.DomainEconomy)
	e.bus.PublishCoalesced(event.TopicDistanceChanged, e.state.DistanceKm)
}

// SetCurrentCharacter 切换当前角色并应用其基准速度
// 角色合法性由角色子系统把关，这里只落状态。
func (e *Economy) SetCurrentCharacter(id int, baseSpeed float64) {
	if e.state.CurrentCharacterID == id && e.state.Speed == baseSpeed {
		return
	}
	e.state.CurrentCharacterID = id
	if baseSpeed > 0 {
		e.state.Speed = baseSpeed
	}
	e.saves.MarkDirty(models.DomainEconomy)
	e.bus.PublishCoalesced(event.TopicCharacterChanged, id)
	e.bus.PublishCoalesced(event.TopicSpeedChanged, e.CurrentSpeed())
}

// setMultiplier 改写速度倍率（仅加速控制器调用）
func (e *Economy) setMultiplier(m float64) {
	if m <= 0 || m == e.multiplier {
		return
	}
	e.multiplier = m
	e.bus.PublishCoalesced(event.TopicSpeedChanged, e.CurrentSpeed())
}

// snapshot 状态快照（序列化用）
func (e *Economy) snapshot() models.PlayerState {
	return *e.state
}
