package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/idle-game/internal/clock"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"github.com/wfunc/idle-game/internal/models"
	"github.com/wfunc/idle-game/internal/storage"
)

func TestUpgradeStorage_RejectsInsufficientItems(t *testing.T) {
	e, _, _ := newTestEngine(t)

	err := e.BlackHole().UpgradeStorage()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientItems))
	assert.Equal(t, 0, e.BlackHole().StorageLevel())
	assert.Equal(t, int64(100), e.BlackHole().StorageMax(), "失败的升级不动任何状态")
}

func TestUpgradeStorage_SpendsItemsAndAppliesStep(t *testing.T) {
	e, _, _ := newTestEngine(t)

	// 1档消耗 40×资源0
	e.Inventory().Collect(0, 50)
	require.NoError(t, e.BlackHole().UpgradeStorage())

	assert.Equal(t, 1, e.BlackHole().StorageLevel())
	assert.Equal(t, int64(1500), e.BlackHole().StorageMax())
	assert.Equal(t, int64(10), e.Inventory().Count(0), "消耗按档位表扣除")

	// 2005: 仓库等级达到型任务
	m, ok := e.Goals().Mission(2005)
	require.True(t, ok)
	assert.Equal(t, float64(1), m.CurrentValue)
	assert.False(t, m.IsCompleted)
}

func TestUpgradeStorage_PartialCostsRejectWholesale(t *testing.T) {
	e, _, _ := newTestEngine(t)

	// 2档要 80×资源0 + 30×资源1，先升到1档再只备齐一半
	e.Inventory().Collect(0, 50)
	require.NoError(t, e.BlackHole().UpgradeStorage())
	e.Inventory().Collect(0, 90)

	err := e.BlackHole().UpgradeStorage()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientItems))
	assert.Equal(t, int64(100), e.Inventory().Count(0), "任一项不足时一个都不扣")
	assert.Equal(t, 1, e.BlackHole().StorageLevel())
}

func TestUpgradeStorage_PastLastStep(t *testing.T) {
	mc := clock.NewManualClock(time.Unix(1_700_000_000, 0))
	store := storage.NewMemoryStore()
	seedDomain(t, store, models.DomainBlackHole,
		`{"blackhole":{"income_level":0,"storage_level":5,"income":1,"storage_max":10000}}`)

	e := newTestEngineWith(t, store, mc)
	err := e.BlackHole().UpgradeStorage()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpgradeStep), "最高档之上没有档位")
}

func TestUpgradeIncome_SpendsItemsAndAppliesStep(t *testing.T) {
	e, _, _ := newTestEngine(t)

	// 1档消耗 30×资源0
	e.Inventory().Collect(0, 35)
	require.NoError(t, e.BlackHole().UpgradeIncome())

	assert.Equal(t, 1, e.BlackHole().IncomeLevel())
	assert.Equal(t, 1.2, e.BlackHole().Income())
	assert.Equal(t, int64(5), e.Inventory().Count(0))
}

func TestRepair_RederivesStepValuesFromCatalog(t *testing.T) {
	mc := clock.NewManualClock(time.Unix(1_700_000_000, 0))
	store := storage.NewMemoryStore()
	// 旧存档里的数值来自过期档位表
	seedDomain(t, store, models.DomainBlackHole,
		`{"blackhole":{"income_level":1,"storage_level":2,"income":9.9,"storage_max":777}}`)

	e := newTestEngineWith(t, store, mc)
	assert.Equal(t, int64(2500), e.BlackHole().StorageMax(), "档位数值以目录为准")
	assert.Equal(t, 1.2, e.BlackHole().Income())
	assert.Contains(t, e.DirtyDomains(), models.DomainBlackHole)
}
