package api

import (
	"context"
	"encoding/json"

	"github.com/wfunc/idle-game/internal/config"
	"github.com/wfunc/idle-game/internal/event"
	"github.com/wfunc/idle-game/internal/game"
	"github.com/wfunc/idle-game/internal/logger"
	"github.com/wfunc/idle-game/internal/models"
)

// PlayerView 玩家状态视图
type PlayerView struct {
	Gold               int64   `json:"gold"`
	DistanceKm         float64 `json:"distance_km"`
	Speed              float64 `json:"speed"`
	SpeedMultiplier    float64 `json:"speed_multiplier"`
	CurrentCharacterID int     `json:"current_character_id"`
	StorageLevel       int     `json:"storage_level"`
	StorageMax         int64   `json:"storage_max"`
	StorageUsed        int64   `json:"storage_used"`
	IncomeLevel        int     `json:"income_level"`
	Income             float64 `json:"income"`
}

// MissionView 任务视图
type MissionView struct {
	ID            int     `json:"id"`
	Tier          string  `json:"tier"`
	Category      string  `json:"category"`
	GoalTarget    float64 `json:"goal_target"`
	CurrentValue  float64 `json:"current_value"`
	IsCompleted   bool    `json:"is_completed"`
	RewardClaimed bool    `json:"reward_claimed"`
	RewardGold    int64   `json:"reward_gold"`
}

// BoostView 加速状态视图
type BoostView struct {
	Unlocked    bool    `json:"unlocked"`
	Phase       string  `json:"phase"`
	Percent     float64 `json:"percent"`
	RemainingMs int64   `json:"remaining_ms"`
}

// CharacterView 角色视图
type CharacterView struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	CostGold  int64   `json:"cost_gold"`
	BaseSpeed float64 `json:"base_speed"`
	Owned     bool    `json:"owned"`
	Selected  bool    `json:"selected"`
}

// Listener 引擎信号回调
// 载荷为JSON编码的事件内容，跨语言绑定层直接透传。
type Listener func(topic string, payload string)

// ProgressAPI 进度引擎的对外嵌入面
// 宿主App通过这里驱动引擎，不触碰internal包。所有方法都必须
// 在宿主的同一条更新线程上调用。
type ProgressAPI struct {
	engine *game.Engine
}

// New 按配置装配引擎
// configPath为空时在./config与当前目录查找config.yaml。
func New(ctx context.Context, configPath string) (*ProgressAPI, error) {
	mgr, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(&mgr.Get().Log); err != nil {
		return nil, err
	}

	engine, err := game.New(ctx, game.Options{
		ConfigManager: mgr,
		Logger:        logger.GetLogger(),
	})
	if err != nil {
		return nil, err
	}
	return &ProgressAPI{engine: engine}, nil
}

// Wrap 包装宿主自行装配的引擎
func Wrap(engine *game.Engine) *ProgressAPI {
	return &ProgressAPI{engine: engine}
}

// Engine 暴露底层引擎（宿主需要内部子系统时使用）
func (p *ProgressAPI) Engine() *game.Engine {
	return p.engine
}

// Update 驱动一个引擎tick，宿主每帧调用
func (p *ProgressAPI) Update() {
	p.engine.Update()
}

// Suspend 挂起：取消去抖窗口并把所有脏域强制落盘
func (p *ProgressAPI) Suspend(ctx context.Context) error {
	return p.engine.Suspend(ctx)
}

// Resume 从挂起恢复
func (p *ProgressAPI) Resume() {
	p.engine.Resume()
}

// Close 关闭引擎并做末次落盘
func (p *ProgressAPI) Close(ctx context.Context) error {
	return p.engine.Close(ctx)
}

// InstallID 安装标识
func (p *ProgressAPI) InstallID() string {
	return p.engine.Meta().InstallID
}

// Player 玩家状态快照
func (p *ProgressAPI) Player() PlayerView {
	eco := p.engine.Economy()
	hole := p.engine.BlackHole()
	return PlayerView{
		Gold:               eco.Gold(),
		DistanceKm:         eco.DistanceKm(),
		Speed:              eco.CurrentSpeed(),
		SpeedMultiplier:    eco.Multiplier(),
		CurrentCharacterID: eco.CurrentCharacterID(),
		StorageLevel:       hole.StorageLevel(),
		StorageMax:         hole.StorageMax(),
		StorageUsed:        p.engine.Inventory().TotalUsed(),
		IncomeLevel:        hole.IncomeLevel(),
		Income:             hole.Income(),
	}
}

// Resources 资源背包快照
func (p *ProgressAPI) Resources() []int64 {
	return p.engine.Inventory().Counts()
}

// AddGold 加金币（饱和运算）
func (p *ProgressAPI) AddGold(delta int64) {
	p.engine.Economy().AddGold(delta)
}

// SpendGold 花金币，余额不足返回false
func (p *ProgressAPI) SpendGold(amount int64) bool {
	return p.engine.Economy().SpendGold(amount)
}

// AdvanceDistance 推进里程
func (p *ProgressAPI) AdvanceDistance(km float64) {
	p.engine.Economy().AdvanceDistance(km)
}

// Collect 收集资源，返回实际入库量
func (p *ProgressAPI) Collect(kind int, n int64) int64 {
	return p.engine.Inventory().Collect(kind, n)
}

// UpgradeStorage 升级仓库容量
func (p *ProgressAPI) UpgradeStorage() error {
	return p.engine.BlackHole().UpgradeStorage()
}

// UpgradeIncome 升级收益
func (p *ProgressAPI) UpgradeIncome() error {
	return p.engine.BlackHole().UpgradeIncome()
}

// Missions 全部任务视图（目录顺序）
func (p *ProgressAPI) Missions() []MissionView {
	return missionViews(p.engine.Goals().Missions())
}

// MissionsByTier 指定层级的任务视图
func (p *ProgressAPI) MissionsByTier(tier string) []MissionView {
	return missionViews(p.engine.Goals().MissionsByTier(models.Tier(tier)))
}

// TierUnlocked 任务层级是否解锁
func (p *ProgressAPI) TierUnlocked(tier string) bool {
	return p.engine.Goals().TierUnlocked(models.Tier(tier))
}

// ClaimReward 领取任务奖励
// 返回发放的金币与是否领取成功；重复领取是空操作。
func (p *ProgressAPI) ClaimReward(missionID int) (int64, bool) {
	return p.engine.Goals().Claim(missionID)
}

// Boost 加速状态视图
func (p *ProgressAPI) Boost() BoostView {
	b := p.engine.Boost()
	return BoostView{
		Unlocked:    b.Unlocked(),
		Phase:       string(b.Phase()),
		Percent:     b.State().Percent,
		RemainingMs: b.RemainingMs(),
	}
}

// UnlockBoost 解锁加速功能
func (p *ProgressAPI) UnlockBoost() {
	p.engine.Boost().SetUnlocked(true)
}

// ActivateBoost 激活加速，守卫不满足时返回false
func (p *ProgressAPI) ActivateBoost() bool {
	return p.engine.Boost().Activate()
}

// Characters 目录中的全部角色视图
func (p *ProgressAPI) Characters() []CharacterView {
	chars := p.engine.Characters()
	current := p.engine.Economy().CurrentCharacterID()
	defs := p.engine.Catalog().Characters()
	out := make([]CharacterView, 0, len(defs))
	for _, def := range defs {
		out = append(out, CharacterView{
			ID:        def.ID,
			Name:      def.Name,
			CostGold:  def.CostGold,
			BaseSpeed: def.BaseSpeed,
			Owned:     chars.Owned(def.ID),
			Selected:  def.ID == current,
		})
	}
	return out
}

// UnlockCharacter 解锁角色
func (p *ProgressAPI) UnlockCharacter(id int) error {
	return p.engine.Characters().Unlock(id)
}

// SelectCharacter 切换当前角色
func (p *ProgressAPI) SelectCharacter(id int) error {
	return p.engine.Characters().Select(id)
}

// SaveNow 立即落盘所有脏域（显式存档点）
func (p *ProgressAPI) SaveNow(ctx context.Context) error {
	return p.engine.Suspend(ctx)
}

// SetListener 注册引擎信号回调
// 订阅全部话题，载荷JSON编码后透传；回调在Update线程上触发。
func (p *ProgressAPI) SetListener(fn Listener) {
	if fn == nil {
		return
	}
	topics := []event.Topic{
		event.TopicGoldChanged,
		event.TopicDistanceChanged,
		event.TopicSpeedChanged,
		event.TopicResourceChanged,
		event.TopicStorageChanged,
		event.TopicMissionStateChanged,
		event.TopicCharacterChanged,
		event.TopicBoostChanged,
		event.TopicBoostUnlockChanged,
	}
	for _, topic := range topics {
		topic := topic
		p.engine.Bus().Subscribe(topic, func(payload interface{}) {
			data, err := json.Marshal(payload)
			if err != nil {
				return
			}
			fn(string(topic), string(data))
		})
	}
}

// missionViews 任务记录转视图
func missionViews(records []models.MissionRecord) []MissionView {
	out := make([]MissionView, 0, len(records))
	for _, m := range records {
		out = append(out, MissionView{
			ID:            m.ID,
			Tier:          string(m.Tier),
			Category:      m.Category,
			GoalTarget:    m.GoalTarget,
			CurrentValue:  m.CurrentValue,
			IsCompleted:   m.IsCompleted,
			RewardClaimed: m.RewardClaimed,
			RewardGold:    m.RewardGold,
		})
	}
	return out
}
