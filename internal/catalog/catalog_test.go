package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/idle-game/internal/config"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"go.uber.org/zap"
)

func writeCatalogFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_BundledDefaults(t *testing.T) {
	c, err := Load(&config.CatalogConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.NotEmpty(t, c.Missions())
	assert.NotEmpty(t, c.Characters())

	_, ok := c.StorageUpgrade(1)
	assert.True(t, ok)
	_, ok = c.IncomeUpgrade(1)
	assert.True(t, ok)

	char, ok := c.Character(1)
	require.True(t, ok)
	assert.Equal(t, int64(0), char.CostGold, "初始角色免费")

	// 默认任务表三个层级齐全
	tiers := make(map[models.Tier]int)
	for _, def := range c.Missions() {
		tiers[def.Tier]++
	}
	assert.Positive(t, tiers[models.TierEasy])
	assert.Positive(t, tiers[models.TierNormal])
	assert.Positive(t, tiers[models.TierHard])
}

func TestLoad_ExplicitMissionFile(t *testing.T) {
	path := writeCatalogFile(t, "missions.yaml", `
missions:
  - id: 7
    tier: easy
    category: economy
    goal_type: accumulate
    goal_key: gold
    goal_target: 100
    reward_gold: 10
`)
	c, err := Load(&config.CatalogConfig{MissionsPath: path}, zap.NewNop())
	require.NoError(t, err)

	missions := c.Missions()
	require.Len(t, missions, 1)
	assert.Equal(t, 7, missions[0].ID)
	assert.Equal(t, models.GoalAccumulate, missions[0].GoalType)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(&config.CatalogConfig{MissionsPath: "/no/such/file.yaml"}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCatalogLoad, apperrors.GetCode(err))
}

func TestLoad_DuplicateMissionIDFails(t *testing.T) {
	path := writeCatalogFile(t, "missions.yaml", `
missions:
  - id: 1
    tier: easy
    category: a
    goal_type: accumulate
    goal_key: gold
    goal_target: 1
    reward_gold: 1
  - id: 1
    tier: easy
    category: b
    goal_type: count
    goal_key: gold_spent
    goal_target: 1
    reward_gold: 1
`)
	_, err := Load(&config.CatalogConfig{MissionsPath: path}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCatalogDuplicate, apperrors.GetCode(err))
}

func TestLoad_InvalidTierFails(t *testing.T) {
	path := writeCatalogFile(t, "missions.yaml", `
missions:
  - id: 1
    tier: legendary
    category: a
    goal_type: accumulate
    goal_key: gold
    goal_target: 1
    reward_gold: 1
`)
	_, err := Load(&config.CatalogConfig{MissionsPath: path}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCatalogParse, apperrors.GetCode(err))
}

func TestLoad_InvalidGoalTypeFails(t *testing.T) {
	path := writeCatalogFile(t, "missions.yaml", `
missions:
  - id: 1
    tier: easy
    category: a
    goal_type: race
    goal_key: gold
    goal_target: 1
    reward_gold: 1
`)
	_, err := Load(&config.CatalogConfig{MissionsPath: path}, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCatalogParse, apperrors.GetCode(err))
}

func TestLoad_DuplicateUpgradeStepFirstWins(t *testing.T) {
	path := writeCatalogFile(t, "upgrades.yaml", `
storage:
  - step: 1
    storage_max: 1500
    costs:
      - item_id: 0
        count: 10
  - step: 1
    storage_max: 9999
    costs:
      - item_id: 0
        count: 1
income:
  - step: 1
    income: 1.2
    costs:
      - item_id: 0
        count: 5
`)
	c, err := Load(&config.CatalogConfig{UpgradesPath: path}, zap.NewNop())
	require.NoError(t, err, "重复档位号不是错误")

	up, ok := c.StorageUpgrade(1)
	require.True(t, ok)
	assert.Equal(t, int64(1500), up.StorageMax, "保留首个出现的档位")
	require.Len(t, up.Costs, 1)
	assert.Equal(t, int64(10), up.Costs[0].Count)
}

func TestLoad_DuplicateCharacterFirstWins(t *testing.T) {
	path := writeCatalogFile(t, "characters.yaml", `
characters:
  - id: 1
    name: 首个
    cost_gold: 0
    base_speed: 10
  - id: 1
    name: 重复
    cost_gold: 100
    base_speed: 99
`)
	c, err := Load(&config.CatalogConfig{CharactersPath: path}, zap.NewNop())
	require.NoError(t, err)

	char, ok := c.Character(1)
	require.True(t, ok)
	assert.Equal(t, "首个", char.Name)
	assert.Len(t, c.Characters(), 1)
}

func TestNewRecords_ZeroProgress(t *testing.T) {
	c, err := Load(&config.CatalogConfig{}, zap.NewNop())
	require.NoError(t, err)

	for _, rec := range c.NewRecords() {
		assert.Zero(t, rec.CurrentValue)
		assert.False(t, rec.IsCompleted)
		assert.False(t, rec.RewardClaimed)
	}
}

func TestMergeMissions_ProgressWinsDefinitionFollowsCatalog(t *testing.T) {
	path := writeCatalogFile(t, "missions.yaml", `
missions:
  - id: 1
    tier: easy
    category: economy
    goal_type: accumulate
    goal_key: gold
    goal_target: 2000
    reward_gold: 300
  - id: 2
    tier: easy
    category: travel
    goal_type: reach_value
    goal_key: speed
    goal_target: 12
    reward_gold: 100
`)
	c, err := Load(&config.CatalogConfig{MissionsPath: path}, zap.NewNop())
	require.NoError(t, err)

	persisted := []models.MissionRecord{
		{ID: 1, GoalTarget: 1000, RewardGold: 200, CurrentValue: 800, IsCompleted: false},
		{ID: 99, CurrentValue: 5, IsCompleted: true}, // 目录里已不存在
	}
	merged := c.MergeMissions(persisted)
	require.Len(t, merged, 2)

	// 进度来自持久化，定义字段跟随目录（目标已上调）
	assert.Equal(t, float64(800), merged[0].CurrentValue)
	assert.Equal(t, float64(2000), merged[0].GoalTarget)
	assert.Equal(t, int64(300), merged[0].RewardGold)

	// 持久化中没有的任务取零进度
	assert.Equal(t, 2, merged[1].ID)
	assert.Zero(t, merged[1].CurrentValue)
}

func TestMergeMissions_EmptyPersisted(t *testing.T) {
	c, err := Load(&config.CatalogConfig{}, zap.NewNop())
	require.NoError(t, err)

	merged := c.MergeMissions(nil)
	assert.Len(t, merged, len(c.Missions()))
}
