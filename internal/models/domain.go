package models

import "strings"

// 存档域键
// 每个域独立去抖、独立落盘，对应存储中的一条键值记录。
const (
	DomainEconomy    = "economy"
	DomainBlackHole  = "blackhole"
	DomainResources  = "resources"
	DomainBoost      = "boost"
	DomainMissions   = "missions"
	DomainCharacters = "characters"
	DomainMeta       = "meta"
)

// AllDomains 全部存档域（按引导加载顺序）
func AllDomains() []string {
	return []string{
		DomainMeta,
		DomainEconomy,
		DomainBlackHole,
		DomainResources,
		DomainBoost,
		DomainMissions,
		DomainCharacters,
	}
}

// GoldMax 金币饱和上限，加法到顶后封顶，不回绕
const GoldMax int64 = 9_000_000_000_000_000_000

// PlayerState 玩家经济状态（economy域）
type PlayerState struct {
	Gold               int64   `json:"gold"`
	DistanceKm         float64 `json:"distance_km"`
	CurrentCharacterID int     `json:"current_character_id"`
	Speed              float64 `json:"speed"`
}

// SaturatingAddGold 饱和加法
// 结果始终落在 [0, GoldMax]：上溢封顶、下溢归零。
func SaturatingAddGold(gold, delta int64) int64 {
	if delta > 0 {
		if gold > GoldMax-delta {
			return GoldMax
		}
		return gold + delta
	}
	if gold+delta < 0 {
		return 0
	}
	return gold + delta
}

// BlackHoleState 黑洞（仓库/收益）状态（blackhole域）
type BlackHoleState struct {
	IncomeLevel  int     `json:"income_level"`
	StorageLevel int     `json:"storage_level"`
	Income       float64 `json:"income"`
	StorageMax   int64   `json:"storage_max"`
}

// ResourceCounts 资源背包（resources域）
// 定长数组，下标即资源种类ID；收集上限由生产方对照仓库容量把关，
// 背包本身不拒绝写入。
type ResourceCounts []int64

// TotalUsed 已占用的仓库格数
func (r ResourceCounts) TotalUsed() int64 {
	var total int64
	for _, c := range r {
		total += c
	}
	return total
}

// EnsureKinds 调整到指定的资源种类数
// 存档中的种类数少于目录定义时补零，多出的尾部保留不裁剪。
func (r ResourceCounts) EnsureKinds(kinds int) ResourceCounts {
	for len(r) < kinds {
		r = append(r, 0)
	}
	return r
}

// BoostPhase 加速阶段
// 没有独立的状态字段，阶段永远由当前时刻与两个绝对时间戳比较得出。
type BoostPhase string

const (
	BoostIdle    BoostPhase = "idle"    // 待机
	BoostActive  BoostPhase = "active"  // 生效中
	BoostCooling BoostPhase = "cooling" // 冷却中
)

// BoostState 加速效果状态（boost域）
// 结束时间持久化为绝对壁钟毫秒，重启后仍能在正确时刻结算。
type BoostState struct {
	Percent       float64 `json:"percent"`
	DurationSec   float64 `json:"duration_sec"`
	CooldownSec   float64 `json:"cooldown_sec"`
	Unlocked      bool    `json:"unlocked"`
	BoostEndMs    int64   `json:"boost_end_ms"`
	CooldownEndMs int64   `json:"cooldown_end_ms"`
}

// PhaseAt 按指定时刻推导当前阶段
func (b *BoostState) PhaseAt(nowMs int64) BoostPhase {
	if nowMs < b.BoostEndMs {
		return BoostActive
	}
	if nowMs < b.CooldownEndMs {
		return BoostCooling
	}
	return BoostIdle
}

// ActiveAt 指定时刻是否生效中
func (b *BoostState) ActiveAt(nowMs int64) bool {
	return nowMs < b.BoostEndMs
}

// CoolingAt 指定时刻是否冷却中
func (b *BoostState) CoolingAt(nowMs int64) bool {
	return nowMs >= b.BoostEndMs && nowMs < b.CooldownEndMs
}

// Multiplier 解锁后的速度倍率（1 + percent/100）
func (b *BoostState) Multiplier() float64 {
	return 1 + b.Percent/100
}

// Tier 任务层级
type Tier string

const (
	TierEasy   Tier = "easy"
	TierNormal Tier = "normal"
	TierHard   Tier = "hard"
)

// IsValid 是否为合法层级
func (t Tier) IsValid() bool {
	switch t {
	case TierEasy, TierNormal, TierHard:
		return true
	default:
		return false
	}
}

// Preceding 前置层级
// easy没有前置，normal前置easy，hard前置normal。
func (t Tier) Preceding() (Tier, bool) {
	switch t {
	case TierNormal:
		return TierEasy, true
	case TierHard:
		return TierNormal, true
	default:
		return "", false
	}
}

// GoalType 目标评估规则类型
type GoalType string

const (
	// GoalAccumulate 累计型：进度随增量累加，完成后不回退
	GoalAccumulate GoalType = "accumulate"
	// GoalCount 计数型：与累计型同规则，语义上按次数计
	GoalCount GoalType = "count"
	// GoalReachValue 达到型：进度直接覆盖为实时值，可下降；完成单向
	GoalReachValue GoalType = "reach_value"
	// GoalUnlock 解锁型：只接受false→true的转变
	GoalUnlock GoalType = "unlock"
	// GoalMultiReach 全量达标型：每一项都不低于阈值才算满足，可回退
	GoalMultiReach GoalType = "multi_reach"
)

// IsValid 是否为合法目标类型
func (g GoalType) IsValid() bool {
	switch g {
	case GoalAccumulate, GoalCount, GoalReachValue, GoalUnlock, GoalMultiReach:
		return true
	default:
		return false
	}
}

// EachResourceGoalKey 全量达标任务的固定目标键
const EachResourceGoalKey = "each_resource_amount"

// MissionRecord 任务记录（missions域）
// 由静态目录与持久化进度在加载时合并生成，会话期间只增不删。
type MissionRecord struct {
	ID            int      `json:"id"`
	Tier          Tier     `json:"tier"`
	Category      string   `json:"category"`
	GoalType      GoalType `json:"goal_type"`
	GoalKey       string   `json:"goal_key"`
	GoalTarget    float64  `json:"goal_target"`
	CurrentValue  float64  `json:"current_value"`
	IsCompleted   bool     `json:"is_completed"`
	RewardClaimed bool     `json:"reward_claimed"`
	RewardGold    int64    `json:"reward_gold"`
}

// MatchesKey 目标键匹配：精确、去首尾空白、区分大小写
func (m *MissionRecord) MatchesKey(goalKey string) bool {
	return m.GoalKey == strings.TrimSpace(goalKey)
}

// Repair 修复加载到的非法状态
// 已领取的任务必须算已完成（损坏的存档可能违反此不变式）。
// 返回是否发生了修复。
func (m *MissionRecord) Repair() bool {
	if m.RewardClaimed && !m.IsCompleted {
		m.IsCompleted = true
		return true
	}
	return false
}

// CharacterState 已拥有角色（characters域，持久化为列表）
type CharacterState struct {
	ID    int `json:"id"`
	Level int `json:"level"`
}

// MetaState 存档元信息（meta域）
type MetaState struct {
	InstallID     string `json:"install_id"`
	SchemaVersion int    `json:"schema_version"`
	CreatedAtMs   int64  `json:"created_at_ms"`
}

// SchemaVersion 当前存档格式版本
const SchemaVersion = 1

// ItemCost 升级消耗项
type ItemCost struct {
	ItemID int   `json:"item_id" yaml:"item_id"`
	Count  int64 `json:"count" yaml:"count"`
}

// UpgradeStep 升级档位（只读目录数据，按档位号查询）
// 源数据中的重复档位号以首个出现为准。
type UpgradeStep struct {
	Step  int        `json:"step" yaml:"step"`
	Costs []ItemCost `json:"costs" yaml:"costs"`
}
