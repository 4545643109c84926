package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/idle-game/internal/errors"
)

func TestUnlock_UnknownCharacter(t *testing.T) {
	e, _, _ := newTestEngine(t)

	err := e.Characters().Unlock(99)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCharacterUnknown))
}

func TestUnlock_RejectsInsufficientGold(t *testing.T) {
	e, _, _ := newTestEngine(t)

	err := e.Characters().Unlock(2)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientGold))
	assert.False(t, e.Characters().Owned(2))
}

func TestUnlock_SpendsGoldAndExtendsRoster(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.Economy().AddGold(60000)
	require.NoError(t, e.Characters().Unlock(2))

	assert.True(t, e.Characters().Owned(2))
	assert.Equal(t, int64(10000), e.Economy().Gold(), "按目录定价扣费")
	assert.Len(t, e.Characters().Roster(), 2)

	// 3003: 解锁角色计数任务
	m, ok := e.Goals().Mission(3003)
	require.True(t, ok)
	assert.Equal(t, float64(1), m.CurrentValue)
}

func TestUnlock_OwnedCharacterIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.Economy().AddGold(100)

	require.NoError(t, e.Characters().Unlock(1), "重复解锁是空操作，不是错误")
	assert.Len(t, e.Characters().Roster(), 1)
	assert.Equal(t, int64(100), e.Economy().Gold(), "空操作不扣费")
}

func TestSelect_RequiresOwnership(t *testing.T) {
	e, _, _ := newTestEngine(t)

	err := e.Characters().Select(99)
	assert.True(t, apperrors.Is(err, apperrors.ErrCharacterUnknown))

	err = e.Characters().Select(3)
	assert.True(t, apperrors.Is(err, apperrors.ErrCharacterLocked))
	assert.Equal(t, 1, e.Economy().CurrentCharacterID(), "失败的切换不动状态")
}

func TestSelect_AppliesCatalogBaseSpeed(t *testing.T) {
	e, _, _ := newTestEngine(t)

	e.Economy().AddGold(60000)
	require.NoError(t, e.Characters().Unlock(2))
	require.NoError(t, e.Characters().Select(2))

	assert.Equal(t, 2, e.Economy().CurrentCharacterID())
	assert.Equal(t, float64(12), e.Economy().BaseSpeed())
	assert.Equal(t, float64(12), e.Economy().CurrentSpeed())
}
