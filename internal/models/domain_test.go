package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaturatingAddGold(t *testing.T) {
	// 正常加法
	assert.Equal(t, int64(150), SaturatingAddGold(100, 50))

	// 上溢封顶：距上限10，加100只到上限
	assert.Equal(t, GoldMax, SaturatingAddGold(GoldMax-10, 100))

	// 恰好到上限
	assert.Equal(t, GoldMax, SaturatingAddGold(GoldMax-100, 100))

	// 下溢归零：50减1000得0
	assert.Equal(t, int64(0), SaturatingAddGold(50, -1000))

	// 正常减法
	assert.Equal(t, int64(30), SaturatingAddGold(50, -20))

	// 上限处继续加不回绕
	assert.Equal(t, GoldMax, SaturatingAddGold(GoldMax, 1))
}

func TestBoostState_PhaseAt(t *testing.T) {
	b := &BoostState{
		BoostEndMs:    10_000,
		CooldownEndMs: 30_000,
	}

	// 结束时间之前为生效中
	assert.Equal(t, BoostActive, b.PhaseAt(5_000))
	assert.True(t, b.ActiveAt(9_999))

	// 结束时间到冷却结束之间为冷却中
	assert.Equal(t, BoostCooling, b.PhaseAt(10_000))
	assert.Equal(t, BoostCooling, b.PhaseAt(29_999))
	assert.True(t, b.CoolingAt(15_000))

	// 冷却结束后为待机
	assert.Equal(t, BoostIdle, b.PhaseAt(30_000))
	assert.Equal(t, BoostIdle, b.PhaseAt(99_999))

	// 两个时间戳清零即待机
	idle := &BoostState{}
	assert.Equal(t, BoostIdle, idle.PhaseAt(123))
}

func TestBoostState_Multiplier(t *testing.T) {
	b := &BoostState{Percent: 50}
	assert.InDelta(t, 1.5, b.Multiplier(), 1e-9)

	b.Percent = 0
	assert.InDelta(t, 1.0, b.Multiplier(), 1e-9)
}

func TestMissionRecord_Repair(t *testing.T) {
	// 已领取但未完成：修复为已完成
	m := &MissionRecord{RewardClaimed: true, IsCompleted: false}
	assert.True(t, m.Repair())
	assert.True(t, m.IsCompleted)

	// 合法状态不动
	m2 := &MissionRecord{RewardClaimed: false, IsCompleted: false}
	assert.False(t, m2.Repair())
	assert.False(t, m2.IsCompleted)

	m3 := &MissionRecord{RewardClaimed: true, IsCompleted: true}
	assert.False(t, m3.Repair())
}

func TestMissionRecord_MatchesKey(t *testing.T) {
	m := &MissionRecord{GoalKey: "gold"}

	// 精确匹配
	assert.True(t, m.MatchesKey("gold"))

	// 去除首尾空白后匹配
	assert.True(t, m.MatchesKey("  gold "))

	// 大小写敏感
	assert.False(t, m.MatchesKey("Gold"))
	assert.False(t, m.MatchesKey("gold_spent"))
}

func TestTier_Preceding(t *testing.T) {
	prev, ok := TierNormal.Preceding()
	assert.True(t, ok)
	assert.Equal(t, TierEasy, prev)

	prev, ok = TierHard.Preceding()
	assert.True(t, ok)
	assert.Equal(t, TierNormal, prev)

	// easy层没有前置
	_, ok = TierEasy.Preceding()
	assert.False(t, ok)
}

func TestResourceCounts(t *testing.T) {
	r := ResourceCounts{3, 0, 5}
	assert.Equal(t, int64(8), r.TotalUsed())

	// 扩展到更多种类时补零
	r = r.EnsureKinds(5)
	assert.Len(t, r, 5)
	assert.Equal(t, int64(0), r[4])

	// 已有长度不裁剪
	r = r.EnsureKinds(2)
	assert.Len(t, r, 5)
}

func TestGoalType_IsValid(t *testing.T) {
	assert.True(t, GoalAccumulate.IsValid())
	assert.True(t, GoalCount.IsValid())
	assert.True(t, GoalReachValue.IsValid())
	assert.True(t, GoalUnlock.IsValid())
	assert.True(t, GoalMultiReach.IsValid())
	assert.False(t, GoalType("daily").IsValid())
}
