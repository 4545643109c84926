package game

import (
	"sort"
	"strings"
	"time"

	"github.com/wfunc/idle-game/internal/clock"
	"github.com/wfunc/idle-game/internal/event"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"go.uber.org/zap"
)

// TickSources 自动巡检读取的实时信号源
// 引擎装配时以闭包注入，目标引擎不直接持有其他子系统。
type TickSources struct {
	Gold      func() int64
	Speed     func() float64
	Distance  func() float64
	Resources func() []int64
}

// GoalEngine 目标引擎
// 把玩法信号转成任务进度，维护层级解锁与变更通知。
// 全部操作都对已领奖的任务空操作；目标键按去除首尾空白后的
// 精确匹配。与引擎的其他玩法子系统一样，必须在宿主的更新
// 线程上调用。
type GoalEngine struct {
	records   []models.MissionRecord
	saves     *save.Manager
	bus       *event.Bus
	clk       clock.Clock
	sched     *clock.Scheduler
	logger    *zap.Logger
	sources   TickSources
	grantGold func(delta int64)

	tickInterval time.Duration
	tickTask     *clock.Task
	lastTickMs   int64

	// 本tick内发生变化的任务，FlushChanged时一次性广播
	changed map[int]struct{}
}

// NewGoalEngine 创建目标引擎
// records 应为目录与持久化进度合并后的任务记录，引擎接管所有权。
func NewGoalEngine(records []models.MissionRecord, saves *save.Manager, bus *event.Bus, clk clock.Clock, sched *clock.Scheduler, tickInterval time.Duration, logger *zap.Logger) *GoalEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tickInterval <= 0 {
		tickInterval = 250 * time.Millisecond
	}
	return &GoalEngine{
		records:      records,
		saves:        saves,
		bus:          bus,
		clk:          clk,
		sched:        sched,
		logger:       logger,
		tickInterval: tickInterval,
		changed:      make(map[int]struct{}),
	}
}

// BindSources 注入自动巡检的信号源与奖励发放回调
func (e *GoalEngine) BindSources(sources TickSources, grantGold func(delta int64)) {
	e.sources = sources
	e.grantGold = grantGold
}

// Start 启动自动巡检
func (e *GoalEngine) Start() {
	e.lastTickMs = e.clk.NowMs()
	e.scheduleTick()
}

// Stop 停止自动巡检
func (e *GoalEngine) Stop() {
	e.tickTask.Cancel()
	e.tickTask = nil
}

// ResetTickBaseline 重置巡检计时基线
// 宿主从挂起恢复时调用，挂起期间不计入游玩时长。
func (e *GoalEngine) ResetTickBaseline() {
	e.lastTickMs = e.clk.NowMs()
}

// SetTickInterval 更新巡检间隔（配置热更新），下一轮生效
func (e *GoalEngine) SetTickInterval(d time.Duration) {
	if d > 0 {
		e.tickInterval = d
	}
}

// Add 增量信号，作用于累计型与计数型任务
// currentValue = max(0, currentValue + delta)；首次达标时置为完成，
// 之后负增量也不会撤销完成。
func (e *GoalEngine) Add(goalKey string, delta float64) {
	key := strings.TrimSpace(goalKey)
	for i := range e.records {
		m := &e.records[i]
		if m.RewardClaimed || !m.MatchesKey(key) {
			continue
		}
		if m.GoalType != models.GoalAccumulate && m.GoalType != models.GoalCount {
			continue
		}

		next := m.CurrentValue + delta
		if next < 0 {
			next = 0
		}
		dirty := false
		if next != m.CurrentValue {
			m.CurrentValue = next
			dirty = true
		}
		if !m.IsCompleted && m.CurrentValue >= m.GoalTarget {
			m.IsCompleted = true
			dirty = true
			e.logger.Info("任务完成",
				zap.Int("mission_id", m.ID),
				zap.String("goal_key", m.GoalKey),
				zap.Float64("value", m.CurrentValue))
		}
		if dirty {
			e.markChanged(m.ID)
		}
	}
}

// SetValue 覆盖信号，作用于达到型任务
// 进度直接覆盖为实时值，可以下降；完成判定仍是单向的。
func (e *GoalEngine) SetValue(goalKey string, value float64) {
	key := strings.TrimSpace(goalKey)
	for i := range e.records {
		m := &e.records[i]
		if m.RewardClaimed || !m.MatchesKey(key) {
			continue
		}
		if m.GoalType != models.GoalReachValue {
			continue
		}

		dirty := false
		if m.CurrentValue != value {
			m.CurrentValue = value
			dirty = true
		}
		if !m.IsCompleted && value >= m.GoalTarget {
			m.IsCompleted = true
			dirty = true
			e.logger.Info("任务完成",
				zap.Int("mission_id", m.ID),
				zap.String("goal_key", m.GoalKey),
				zap.Float64("value", value))
		}
		if dirty {
			e.markChanged(m.ID)
		}
	}
}

// SetUnlocked 解锁信号，作用于解锁型任务
// 只接受false→true的转变；传false是空操作，解锁不可撤销。
func (e *GoalEngine) SetUnlocked(goalKey string, unlocked bool) {
	if !unlocked {
		return
	}
	key := strings.TrimSpace(goalKey)
	for i := range e.records {
		m := &e.records[i]
		if m.RewardClaimed || !m.MatchesKey(key) {
			continue
		}
		if m.GoalType != models.GoalUnlock || m.IsCompleted {
			continue
		}

		m.CurrentValue = 1
		m.IsCompleted = true
		e.markChanged(m.ID)
		e.logger.Info("解锁任务完成",
			zap.Int("mission_id", m.ID),
			zap.String("goal_key", m.GoalKey))
	}
}

// CheckEachAtLeast 全量达标检查
// 作用于目标键为each_resource_amount的全量达标型任务：每一项都
// 不低于阈值才算满足，满足时进度置为阈值，否则归零。这是唯一
// 会回退完成状态的目标类型，语义是"当前每种都持有X个"。
// 阈值对不上任何任务目标时与其他不匹配信号一样直接忽略。
func (e *GoalEngine) CheckEachAtLeast(values []int64, threshold float64) {
	satisfied := len(values) > 0
	for _, v := range values {
		if float64(v) < threshold {
			satisfied = false
			break
		}
	}

	for i := range e.records {
		m := &e.records[i]
		if m.RewardClaimed || !m.MatchesKey(models.EachResourceGoalKey) {
			continue
		}
		if m.GoalType != models.GoalMultiReach || m.GoalTarget != threshold {
			continue
		}

		dirty := false
		if satisfied {
			if m.CurrentValue != threshold {
				m.CurrentValue = threshold
				dirty = true
			}
			if !m.IsCompleted {
				m.IsCompleted = true
				dirty = true
			}
		} else {
			if m.CurrentValue != 0 {
				m.CurrentValue = 0
				dirty = true
			}
			if m.IsCompleted {
				m.IsCompleted = false
				dirty = true
			}
		}
		if dirty {
			e.markChanged(m.ID)
		}
	}
}

// TierUnlocked 层级是否解锁
// 扫描前置层级：前置层全部领奖才解锁；前置层一条记录都没有
// 时视为未解锁（空层不算"全部领完"）。简单层没有前置，始终解锁。
func (e *GoalEngine) TierUnlocked(tier models.Tier) bool {
	prev, ok := tier.Preceding()
	if !ok {
		return tier == models.TierEasy
	}

	count := 0
	for i := range e.records {
		if e.records[i].Tier != prev {
			continue
		}
		count++
		if !e.records[i].RewardClaimed {
			return false
		}
	}
	return count > 0
}

// Claim 领取任务奖励
// 仅对已完成未领取的任务生效，返回发放的金币与是否领取成功。
// 重复领取或未完成时领取是空操作，不是错误。
func (e *GoalEngine) Claim(missionID int) (int64, bool) {
	for i := range e.records {
		m := &e.records[i]
		if m.ID != missionID {
			continue
		}
		if !m.IsCompleted || m.RewardClaimed {
			return 0, false
		}

		m.RewardClaimed = true
		e.markChanged(m.ID)
		// 奖励经由经济域发放，两个域各自独立去抖落盘
		if e.grantGold != nil && m.RewardGold > 0 {
			e.grantGold(m.RewardGold)
		}
		e.logger.Info("任务奖励已领取",
			zap.Int("mission_id", m.ID),
			zap.Int64("reward_gold", m.RewardGold))
		return m.RewardGold, true
	}

	e.logger.Warn("领取了不存在的任务", zap.Int("mission_id", missionID))
	return 0, false
}

// Mission 按ID查任务记录
func (e *GoalEngine) Mission(id int) (models.MissionRecord, bool) {
	for i := range e.records {
		if e.records[i].ID == id {
			return e.records[i], true
		}
	}
	return models.MissionRecord{}, false
}

// Missions 全部任务记录快照（目录顺序）
func (e *GoalEngine) Missions() []models.MissionRecord {
	return append([]models.MissionRecord(nil), e.records...)
}

// MissionsByTier 指定层级的任务记录快照
func (e *GoalEngine) MissionsByTier(tier models.Tier) []models.MissionRecord {
	var out []models.MissionRecord
	for i := range e.records {
		if e.records[i].Tier == tier {
			out = append(out, e.records[i])
		}
	}
	return out
}

// FlushChanged 广播本tick累积的任务变更
// 无论多少任务变了，每tick至多发出一条mission_state_changed，
// 载荷是升序的任务ID列表。宿主在每次Update末尾调用。
func (e *GoalEngine) FlushChanged() {
	if len(e.changed) == 0 {
		return
	}
	ids := make([]int, 0, len(e.changed))
	for id := range e.changed {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	e.changed = make(map[int]struct{})

	e.bus.Publish(event.TopicMissionStateChanged, ids)
}

// markChanged 记录任务变更并标脏任务域
func (e *GoalEngine) markChanged(missionID int) {
	e.changed[missionID] = struct{}{}
	e.saves.MarkDirty(models.DomainMissions)
}

// scheduleTick 调度下一轮自动巡检
func (e *GoalEngine) scheduleTick() {
	e.tickTask = e.sched.Schedule(e.tickInterval, e.onAutoTick)
}

// onAutoTick 自动巡检
// 从实时信号重推导达到型任务、累加游玩时长、复查资源全量达标，
// 把连续变化的状态桥接进离散的评估模型，避免逐帧开销。
func (e *GoalEngine) onAutoTick() {
	now := e.clk.NowMs()
	elapsed := float64(now-e.lastTickMs) / 1000
	e.lastTickMs = now

	if elapsed > 0 {
		e.Add(KeyPlayTime, elapsed)
	}
	if e.sources.Gold != nil {
		e.SetValue(KeyGold, float64(e.sources.Gold()))
	}
	if e.sources.Speed != nil {
		e.SetValue(KeySpeed, e.sources.Speed())
	}
	if e.sources.Distance != nil {
		e.SetValue(KeyDistance, e.sources.Distance())
	}
	if e.sources.Resources != nil {
		values := e.sources.Resources()
		for _, threshold := range e.multiReachTargets() {
			e.CheckEachAtLeast(values, threshold)
		}
	}

	e.scheduleTick()
}

// multiReachTargets 未领奖的全量达标任务的去重目标阈值
func (e *GoalEngine) multiReachTargets() []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for i := range e.records {
		m := &e.records[i]
		if m.RewardClaimed || m.GoalType != models.GoalMultiReach {
			continue
		}
		if !m.MatchesKey(models.EachResourceGoalKey) || seen[m.GoalTarget] {
			continue
		}
		seen[m.GoalTarget] = true
		out = append(out, m.GoalTarget)
	}
	return out
}
