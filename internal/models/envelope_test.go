package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/idle-game/internal/errors"
)

func TestEncodeEnvelope_WrapsPayload(t *testing.T) {
	state := &PlayerState{Gold: 500, DistanceKm: 1.5, CurrentCharacterID: 2, Speed: 1.0}

	data, err := EncodeEnvelope(DomainEconomy, state)
	require.NoError(t, err)

	// 写入端恒定输出包裹形式
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &env))
	payload, ok := env[DomainEconomy]
	require.True(t, ok, "包裹字段名必须等于域名")

	var decoded PlayerState
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, *state, decoded)
}

func TestDecodeEnvelope_WrappedForm(t *testing.T) {
	data := []byte(`{"economy":{"gold":123,"distance_km":4.5,"current_character_id":1,"speed":2.0}}`)

	var state PlayerState
	require.NoError(t, DecodeEnvelope(DomainEconomy, data, &state))
	assert.Equal(t, int64(123), state.Gold)
	assert.InDelta(t, 4.5, state.DistanceKm, 1e-9)
}

func TestDecodeEnvelope_BareObject(t *testing.T) {
	// 没有包裹字段的裸对象也要能读
	data := []byte(`{"gold":7,"distance_km":0,"current_character_id":1,"speed":1}`)

	var state PlayerState
	require.NoError(t, DecodeEnvelope(DomainEconomy, data, &state))
	assert.Equal(t, int64(7), state.Gold)
}

func TestDecodeEnvelope_BareArray(t *testing.T) {
	// 资源域的裸数组输入
	data := []byte(`[3,0,5,1]`)

	var counts ResourceCounts
	require.NoError(t, DecodeEnvelope(DomainResources, data, &counts))
	assert.Equal(t, ResourceCounts{3, 0, 5, 1}, counts)
}

func TestDecodeEnvelope_WrappedArray(t *testing.T) {
	data := []byte(`{"resources":[9,9]}`)

	var counts ResourceCounts
	require.NoError(t, DecodeEnvelope(DomainResources, data, &counts))
	assert.Equal(t, ResourceCounts{9, 9}, counts)
}

func TestDecodeEnvelope_MissionList(t *testing.T) {
	data := []byte(`{"missions":[{"id":1,"tier":"easy","goal_type":"accumulate","goal_key":"gold","goal_target":1000,"current_value":800}]}`)

	var records []MissionRecord
	require.NoError(t, DecodeEnvelope(DomainMissions, data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, TierEasy, records[0].Tier)
	assert.Equal(t, GoalAccumulate, records[0].GoalType)
	assert.InDelta(t, 800.0, records[0].CurrentValue, 1e-9)
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	var state PlayerState

	// 空数据
	err := DecodeEnvelope(DomainEconomy, []byte("  "), &state)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecodeState))

	// 损坏的JSON
	err = DecodeEnvelope(DomainEconomy, []byte(`{"economy":`), &state)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecodeState))
}

func TestEnvelope_RoundTrip(t *testing.T) {
	boost := &BoostState{
		Percent:       50,
		DurationSec:   30,
		CooldownSec:   120,
		Unlocked:      true,
		BoostEndMs:    1_700_000_000_000,
		CooldownEndMs: 0,
	}

	data, err := EncodeEnvelope(DomainBoost, boost)
	require.NoError(t, err)

	var decoded BoostState
	require.NoError(t, DecodeEnvelope(DomainBoost, data, &decoded))
	assert.Equal(t, *boost, decoded)
}
