package game

import (
	"github.com/wfunc/idle-game/internal/catalog"
	"github.com/wfunc/idle-game/internal/event"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/save"
	"go.uber.org/zap"
)

// Characters 角色子系统（characters域的唯一写入方）
// 解锁消耗金币（目录定价），重复解锁是空操作；切换角色
// 要求已拥有，应用目录中的基准速度。
type Characters struct {
	roster  []models.CharacterState
	cat     *catalog.Catalog
	economy *Economy
	saves   *save.Manager
	bus     *event.Bus
	logger  *zap.Logger
	goals   *GoalEngine
}

// NewCharacters 创建角色子系统
func NewCharacters(roster []models.CharacterState, cat *catalog.Catalog, economy *Economy, saves *save.Manager, bus *event.Bus, logger *zap.Logger) *Characters {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Characters{
		roster:  roster,
		cat:     cat,
		economy: economy,
		saves:   saves,
		bus:     bus,
		logger:  logger,
	}
}

// bindGoals 注入目标引擎
func (c *Characters) bindGoals(goals *GoalEngine) {
	c.goals = goals
}

// Owned 是否已拥有指定角色
func (c *Characters) Owned(id int) bool {
	for i := range c.roster {
		if c.roster[i].ID == id {
			return true
		}
	}
	return false
}

// Roster 已拥有角色快照
func (c *Characters) Roster() []models.CharacterState {
	return append([]models.CharacterState(nil), c.roster...)
}

// Unlock 解锁角色
// 按目录定价扣金币；已拥有时是空操作，不是错误。
func (c *Characters) Unlock(id int) error {
	def, ok := c.cat.Character(id)
	if !ok {
		return apperrors.Newf(apperrors.ErrCharacterUnknown, "角色 %d", id)
	}
	if c.Owned(id) {
		return nil
	}
	if def.CostGold > 0 && !c.economy.SpendGold(def.CostGold) {
		return apperrors.Newf(apperrors.ErrInsufficientGold,
			"解锁角色 %d 需要 %d 金币", id, def.CostGold)
	}

	c.roster = append(c.roster, models.CharacterState{ID: id, Level: 1})
	c.saves.MarkDirty(models.DomainCharacters)
	c.bus.PublishCoalesced(event.TopicCharacterChanged, id)

	if c.goals != nil {
		c.goals.Add(KeyCharactersUnlocked, 1)
	}
	c.logger.Info("角色解锁",
		zap.Int("character_id", id),
		zap.String("name", def.Name),
		zap.Int64("cost_gold", def.CostGold))
	return nil
}

// Select 切换当前角色
func (c *Characters) Select(id int) error {
	def, ok := c.cat.Character(id)
	if !ok {
		return apperrors.Newf(apperrors.ErrCharacterUnknown, "角色 %d", id)
	}
	if !c.Owned(id) {
		return apperrors.Newf(apperrors.ErrCharacterLocked, "角色 %d 未解锁", id)
	}
	c.economy.SetCurrentCharacter(id, def.BaseSpeed)
	return nil
}

// ensureOwned 保证角色在名单里（加载修复用）
// 返回是否补了记录。
func (c *Characters) ensureOwned(id int) bool {
	if id <= 0 || c.Owned(id) {
		return false
	}
	c.roster = append(c.roster, models.CharacterState{ID: id, Level: 1})
	return true
}

// snapshot 状态快照（序列化用）
func (c *Characters) snapshot() []models.CharacterState {
	return c.Roster()
}
