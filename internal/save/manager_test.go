package save

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/idle-game/internal/config"
	apperrors "github.com/wfunc/idle-game/internal/errors"
	"go.uber.org/zap"
)

func TestManager_FlushAllWritesEveryDirtyDomain(t *testing.T) {
	_, sched, store := newTestRig()
	m := NewManager(zap.NewNop())

	domains := []string{"meta", "economy", "resources"}
	for _, d := range domains {
		d := d
		c := NewCoordinator(d, store, sched, 500*time.Millisecond,
			staticPayload(`{"`+d+`":{}}`), zap.NewNop())
		m.Register(c)
		c.MarkDirty()
	}

	assert.ElementsMatch(t, domains, m.DirtyDomains())
	require.NoError(t, m.FlushAll(context.Background()))

	for _, d := range domains {
		assert.Equal(t, 1, store.writeCount(d))
	}
	assert.Empty(t, m.DirtyDomains())
}

func TestManager_FlushAllReportsFailure(t *testing.T) {
	_, sched, store := newTestRig()
	failing := newRecordingStore()
	failing.setFailNext(1)
	m := NewManager(zap.NewNop())

	ok := NewCoordinator("economy", store, sched, 500*time.Millisecond,
		staticPayload(`{"economy":{}}`), zap.NewNop())
	bad := NewCoordinator("missions", failing, sched, 500*time.Millisecond,
		staticPayload(`{"missions":[]}`), zap.NewNop())
	m.Register(ok)
	m.Register(bad)

	ok.MarkDirty()
	bad.MarkDirty()

	err := m.FlushAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSaveFlush, apperrors.GetCode(err))
	assert.True(t, bad.Dirty(), "失败域保持脏标记等待重试")
	assert.False(t, ok.Dirty(), "其余域照常落盘")
}

func TestManager_FlushUnknownDomain(t *testing.T) {
	m := NewManager(zap.NewNop())
	err := m.Flush(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrSaveDomainUnknown, apperrors.GetCode(err))
}

func TestManager_MarkDirtyUnknownDomainIsSafe(t *testing.T) {
	m := NewManager(zap.NewNop())
	assert.NotPanics(t, func() { m.MarkDirty("nope") })
}

func TestManager_RegisterReplacesSameDomain(t *testing.T) {
	_, sched, store := newTestRig()
	m := NewManager(zap.NewNop())

	old := NewCoordinator("meta", store, sched, 500*time.Millisecond,
		staticPayload(`{"meta":{"v":1}}`), zap.NewNop())
	m.Register(old)
	repl := NewCoordinator("meta", store, sched, 500*time.Millisecond,
		staticPayload(`{"meta":{"v":2}}`), zap.NewNop())
	m.Register(repl)

	got, found := m.Get("meta")
	require.True(t, found)
	assert.Same(t, repl, got)
}

func TestManager_ApplyConfigOverridesDebounce(t *testing.T) {
	mc, sched, store := newTestRig()
	m := NewManager(zap.NewNop())

	eco := NewCoordinator("economy", store, sched, 500*time.Millisecond,
		staticPayload(`{"economy":{}}`), zap.NewNop())
	meta := NewCoordinator("meta", store, sched, 500*time.Millisecond,
		staticPayload(`{"meta":{}}`), zap.NewNop())
	m.Register(eco)
	m.Register(meta)

	m.ApplyConfig(&config.SaveConfig{
		DebounceInterval: 2 * time.Second,
		Domains:          map[string]time.Duration{"economy": 200 * time.Millisecond},
	})

	eco.MarkDirty()
	meta.MarkDirty()

	mc.Advance(200 * time.Millisecond)
	sched.Drain()
	assert.Equal(t, 1, store.writeCount("economy"), "覆写域按短间隔落盘")
	assert.Equal(t, 0, store.writeCount("meta"))

	mc.Advance(1800 * time.Millisecond)
	sched.Drain()
	assert.Equal(t, 1, store.writeCount("meta"), "其余域用全局间隔")
}
