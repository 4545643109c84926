package game

import (
	"github.com/wfunc/idle-game/internal/clock"
	"github.com/wfunc/idle-game/internal/event"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"go.uber.org/zap"
)

// Boost 加速控制器（boost域的唯一写入方）
// 派生状态机：没有独立的状态字段，待机/生效/冷却永远由当前
// 时刻与两个绝对时间戳比较得出。时长以绝对截止时刻持久化，
// 不用进程内的流逝计时，重启后仍在正确的壁钟时刻结算。
type Boost struct {
	state   *models.BoostState
	clk     clock.Clock
	sched   *clock.Scheduler
	economy *Economy
	saves   *save.Manager
	bus     *event.Bus
	logger  *zap.Logger
	goals   *GoalEngine

	finalizeTask *clock.Task
}

// NewBoost 创建加速控制器
func NewBoost(state *models.BoostState, clk clock.Clock, sched *clock.Scheduler, economy *Economy, saves *save.Manager, bus *event.Bus, logger *zap.Logger) *Boost {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Boost{
		state:   state,
		clk:     clk,
		sched:   sched,
		economy: economy,
		saves:   saves,
		bus:     bus,
		logger:  logger,
	}
}

// bindGoals 注入目标引擎
func (b *Boost) bindGoals(goals *GoalEngine) {
	b.goals = goals
}

// State 状态快照
func (b *Boost) State() models.BoostState {
	return *b.state
}

// Phase 当前阶段（按当前时刻推导）
func (b *Boost) Phase() models.BoostPhase {
	return b.state.PhaseAt(b.clk.NowMs())
}

// Unlocked 加速功能是否已解锁
func (b *Boost) Unlocked() bool {
	return b.state.Unlocked
}

// RemainingMs 当前阶段的剩余毫秒数（待机时为0）
func (b *Boost) RemainingMs() int64 {
	now := b.clk.NowMs()
	switch b.state.PhaseAt(now) {
	case models.BoostActive:
		return b.state.BoostEndMs - now
	case models.BoostCooling:
		return b.state.CooldownEndMs - now
	default:
		return 0
	}
}

// SetUnlocked 设置解锁状态
// 只接受false→true，解锁不可撤销。
func (b *Boost) SetUnlocked(unlocked bool) {
	if !unlocked || b.state.Unlocked {
		return
	}
	b.state.Unlocked = true
	b.saves.MarkDirty(models.DomainBoost)
	b.bus.Publish(event.TopicBoostUnlockChanged, true)

	if b.goals != nil {
		b.goals.SetUnlocked(KeyBoostUnlocked, true)
	}
	b.logger.Info("加速功能已解锁")
}

// Activate 激活加速
// 守卫条件：已解锁、当前待机、速度倍率在基准值。不满足时空操作
// 返回false，不是错误。激活即标脏落盘，结算续延按时长调度。
func (b *Boost) Activate() bool {
	now := b.clk.NowMs()
	if !b.state.Unlocked {
		b.logger.Debug("加速未解锁，忽略激活")
		return false
	}
	if b.state.ActiveAt(now) || b.state.CoolingAt(now) {
		b.logger.Debug("加速非待机状态，忽略激活",
			zap.String("phase", string(b.state.PhaseAt(now))))
		return false
	}
	// 倍率不在基准值说明上一次加速还没结算完，拒绝二次激活
	if b.economy.Multiplier() != 1 {
		b.logger.Warn("速度倍率未回基准，拒绝激活",
			zap.Float64("multiplier", b.economy.Multiplier()))
		return false
	}

	b.state.BoostEndMs = now + int64(b.state.DurationSec*1000)
	b.economy.setMultiplier(b.state.Multiplier())
	b.saves.MarkDirty(models.DomainBoost)
	b.scheduleFinalize(b.state.BoostEndMs)
	b.bus.Publish(event.TopicBoostChanged, models.BoostActive)

	b.logger.Info("加速激活",
		zap.Float64("percent", b.state.Percent),
		zap.Float64("duration_sec", b.state.DurationSec),
		zap.Int64("boost_end_ms", b.state.BoostEndMs))
	return true
}

// Resync 对齐持久化的截止时刻（启动与恢复路径）
// 截止时刻还在未来：重新套用倍率，按剩余时间调度结算，效果
// 透明续跑；已经过去：立即结算，绝不重新进入生效状态；本来
// 就没有未结算的加速：确保倍率回到基准。
func (b *Boost) Resync() {
	now := b.clk.NowMs()

	// 旧的结算续延一律作废，以本次对齐为准
	b.finalizeTask.Cancel()
	b.finalizeTask = nil

	switch {
	case b.state.BoostEndMs > now:
		b.economy.setMultiplier(b.state.Multiplier())
		b.scheduleFinalize(b.state.BoostEndMs)
		b.logger.Info("加速续跑",
			zap.Int64("remaining_ms", b.state.BoostEndMs-now))
	case b.state.BoostEndMs != 0:
		b.logger.Info("加速已过期，补结算")
		b.finalize()
	default:
		if b.economy.Multiplier() != 1 {
			b.economy.setMultiplier(1)
		}
	}
}

// scheduleFinalize 调度结算续延，后来者覆盖先来者
func (b *Boost) scheduleFinalize(deadlineMs int64) {
	b.finalizeTask.Cancel()
	b.finalizeTask = b.sched.ScheduleAt(deadlineMs, b.finalize)
}

// finalize 结算：生效 → 冷却
// 恢复基准倍率，冷却从结算时刻起算，生效截止时刻清零。
func (b *Boost) finalize() {
	if b.state.BoostEndMs == 0 {
		return
	}
	now := b.clk.NowMs()

	b.economy.setMultiplier(1)
	b.state.BoostEndMs = 0
	b.state.CooldownEndMs = now + int64(b.state.CooldownSec*1000)
	b.saves.MarkDirty(models.DomainBoost)
	b.bus.Publish(event.TopicBoostChanged, models.BoostCooling)

	b.logger.Info("加速结算，进入冷却",
		zap.Int64("cooldown_end_ms", b.state.CooldownEndMs))
}

// stop 取消待命的结算续延（引擎关闭用）
// 只取消调度，不动状态：截止时刻已持久化，下次Resync照常结算。
func (b *Boost) stop() {
	b.finalizeTask.Cancel()
	b.finalizeTask = nil
}

// snapshot 状态快照（序列化用）
func (b *Boost) snapshot() models.BoostState {
	return *b.state
}
