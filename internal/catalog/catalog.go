package catalog

import (
	"embed"
	"os"

	"github.com/wfunc/idle-game/internal/config"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// MissionDef 任务目录条目（静态定义，不含进度）
type MissionDef struct {
	ID         int             `yaml:"id"`
	Tier       models.Tier     `yaml:"tier"`
	Category   string          `yaml:"category"`
	GoalType   models.GoalType `yaml:"goal_type"`
	GoalKey    string          `yaml:"goal_key"`
	GoalTarget float64         `yaml:"goal_target"`
	RewardGold int64           `yaml:"reward_gold"`
}

// NewRecord 按定义生成零进度的任务记录
func (d MissionDef) NewRecord() models.MissionRecord {
	return models.MissionRecord{
		ID:         d.ID,
		Tier:       d.Tier,
		Category:   d.Category,
		GoalType:   d.GoalType,
		GoalKey:    d.GoalKey,
		GoalTarget: d.GoalTarget,
		RewardGold: d.RewardGold,
	}
}

// StorageUpgrade 仓库容量升级档位
type StorageUpgrade struct {
	models.UpgradeStep `yaml:",inline"`
	StorageMax         int64 `yaml:"storage_max"`
}

// IncomeUpgrade 收益升级档位
type IncomeUpgrade struct {
	models.UpgradeStep `yaml:",inline"`
	Income             float64 `yaml:"income"`
}

// CharacterDef 角色定义
type CharacterDef struct {
	ID        int     `yaml:"id"`
	Name      string  `yaml:"name"`
	CostGold  int64   `yaml:"cost_gold"`
	BaseSpeed float64 `yaml:"base_speed"`
}

type missionFile struct {
	Missions []MissionDef `yaml:"missions"`
}

type upgradeFile struct {
	Storage []StorageUpgrade `yaml:"storage"`
	Income  []IncomeUpgrade  `yaml:"income"`
}

type characterFile struct {
	Characters []CharacterDef `yaml:"characters"`
}

// Catalog 只读目录数据：任务定义、升级档位、角色定义
// 文件未配置时使用内置默认表。加载后不再变化，可安全并发读取。
type Catalog struct {
	logger *zap.Logger

	missions   []MissionDef
	storage    map[int]StorageUpgrade
	income     map[int]IncomeUpgrade
	characters []CharacterDef
	charIndex  map[int]int
}

// Load 加载全部目录数据
func Load(cfg *config.CatalogConfig, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.CatalogConfig{}
	}
	c := &Catalog{
		logger:    logger,
		storage:   make(map[int]StorageUpgrade),
		income:    make(map[int]IncomeUpgrade),
		charIndex: make(map[int]int),
	}
	if err := c.loadMissions(cfg.MissionsPath); err != nil {
		return nil, err
	}
	if err := c.loadUpgrades(cfg.UpgradesPath); err != nil {
		return nil, err
	}
	if err := c.loadCharacters(cfg.CharactersPath); err != nil {
		return nil, err
	}

	logger.Info("目录数据加载完成",
		zap.Int("missions", len(c.missions)),
		zap.Int("storage_steps", len(c.storage)),
		zap.Int("income_steps", len(c.income)),
		zap.Int("characters", len(c.characters)))
	return c, nil
}

// readSource 读取目录数据源，路径为空时用内置默认表
func readSource(path, bundled string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCatalogLoad, "读取目录文件 %s", path)
		}
		return data, nil
	}
	data, err := defaultsFS.ReadFile("defaults/" + bundled)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCatalogLoad, "内置目录 %s", bundled)
	}
	return data, nil
}

func (c *Catalog) loadMissions(path string) error {
	data, err := readSource(path, "missions.yaml")
	if err != nil {
		return err
	}
	var file missionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCatalogParse, "任务目录解析失败")
	}

	seen := make(map[int]bool, len(file.Missions))
	for _, def := range file.Missions {
		if def.ID <= 0 {
			return apperrors.Newf(apperrors.ErrCatalogParse, "任务ID非法: %d", def.ID)
		}
		if seen[def.ID] {
			return apperrors.Newf(apperrors.ErrCatalogDuplicate, "任务ID重复: %d", def.ID)
		}
		if !def.Tier.IsValid() {
			return apperrors.Newf(apperrors.ErrCatalogParse, "任务 %d 层级非法: %s", def.ID, def.Tier)
		}
		if !def.GoalType.IsValid() {
			return apperrors.Newf(apperrors.ErrCatalogParse, "任务 %d 目标类型非法: %s", def.ID, def.GoalType)
		}
		seen[def.ID] = true
		c.missions = append(c.missions, def)
	}
	return nil
}

func (c *Catalog) loadUpgrades(path string) error {
	data, err := readSource(path, "upgrades.yaml")
	if err != nil {
		return err
	}
	var file upgradeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCatalogParse, "升级档位解析失败")
	}

	// 重复档位号以首个出现为准，其余只警告不报错
	for _, up := range file.Storage {
		if _, ok := c.storage[up.Step]; ok {
			c.logger.Warn("仓库升级档位重复，保留首个",
				zap.Int("step", up.Step))
			continue
		}
		c.storage[up.Step] = up
	}
	for _, up := range file.Income {
		if _, ok := c.income[up.Step]; ok {
			c.logger.Warn("收益升级档位重复，保留首个",
				zap.Int("step", up.Step))
			continue
		}
		c.income[up.Step] = up
	}
	return nil
}

func (c *Catalog) loadCharacters(path string) error {
	data, err := readSource(path, "characters.yaml")
	if err != nil {
		return err
	}
	var file characterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCatalogParse, "角色定义解析失败")
	}

	for _, def := range file.Characters {
		if _, ok := c.charIndex[def.ID]; ok {
			c.logger.Warn("角色ID重复，保留首个", zap.Int("character_id", def.ID))
			continue
		}
		c.charIndex[def.ID] = len(c.characters)
		c.characters = append(c.characters, def)
	}
	return nil
}

// Missions 全部任务定义（目录顺序）
func (c *Catalog) Missions() []MissionDef {
	return append([]MissionDef(nil), c.missions...)
}

// NewRecords 生成全套零进度任务记录（首次运行）
func (c *Catalog) NewRecords() []models.MissionRecord {
	out := make([]models.MissionRecord, 0, len(c.missions))
	for _, def := range c.missions {
		out = append(out, def.NewRecord())
	}
	return out
}

// MergeMissions 目录定义与持久化进度合并
// 目录决定定义字段与顺序；进度字段（currentValue/isCompleted/
// rewardClaimed）取持久化值。目录中已不存在的持久化记录丢弃。
func (c *Catalog) MergeMissions(persisted []models.MissionRecord) []models.MissionRecord {
	byID := make(map[int]models.MissionRecord, len(persisted))
	for _, rec := range persisted {
		byID[rec.ID] = rec
	}

	out := make([]models.MissionRecord, 0, len(c.missions))
	for _, def := range c.missions {
		rec := def.NewRecord()
		if p, ok := byID[def.ID]; ok {
			rec.CurrentValue = p.CurrentValue
			rec.IsCompleted = p.IsCompleted
			rec.RewardClaimed = p.RewardClaimed
			delete(byID, def.ID)
		}
		out = append(out, rec)
	}

	for id := range byID {
		c.logger.Warn("持久化任务已不在目录中，丢弃", zap.Int("mission_id", id))
	}
	return out
}

// StorageUpgrade 按档位号查仓库升级
func (c *Catalog) StorageUpgrade(step int) (StorageUpgrade, bool) {
	up, ok := c.storage[step]
	return up, ok
}

// IncomeUpgrade 按档位号查收益升级
func (c *Catalog) IncomeUpgrade(step int) (IncomeUpgrade, bool) {
	up, ok := c.income[step]
	return up, ok
}

// Character 按ID查角色定义
func (c *Catalog) Character(id int) (CharacterDef, bool) {
	idx, ok := c.charIndex[id]
	if !ok {
		return CharacterDef{}, false
	}
	return c.characters[idx], true
}

// Characters 全部角色定义（目录顺序）
func (c *Catalog) Characters() []CharacterDef {
	return append([]CharacterDef(nil), c.characters...)
}
