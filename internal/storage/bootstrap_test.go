package storage

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBootstrapLoader_StoreHit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "economy", []byte(`{"economy":{"gold":42}}`)))

	defaults := fstest.MapFS{
		"economy.json": {Data: []byte(`{"economy":{"gold":0}}`)},
	}
	loader := NewBootstrapLoader(store, defaults, zap.NewNop())

	// 有存档时不碰内置数据
	data := loader.LoadOrDefault(ctx, "economy")
	assert.Equal(t, []byte(`{"economy":{"gold":42}}`), data)
}

func TestBootstrapLoader_FallsBackToBundled(t *testing.T) {
	store := NewMemoryStore()
	defaults := fstest.MapFS{
		"boost.json": {Data: []byte(`{"boost":{"percent":50}}`)},
	}
	loader := NewBootstrapLoader(store, defaults, zap.NewNop())

	// 首次运行：存档不存在，取内置默认数据
	data := loader.LoadOrDefault(context.Background(), "boost")
	assert.Equal(t, []byte(`{"boost":{"percent":50}}`), data)
}

func TestBootstrapLoader_NoBundledDefault(t *testing.T) {
	loader := NewBootstrapLoader(NewMemoryStore(), fstest.MapFS{}, zap.NewNop())

	// 既没有存档也没有内置数据
	data := loader.LoadOrDefault(context.Background(), "missions")
	assert.Nil(t, data)
}

func TestBootstrapLoader_NilDefaults(t *testing.T) {
	loader := NewBootstrapLoader(NewMemoryStore(), nil, zap.NewNop())

	data := loader.LoadOrDefault(context.Background(), "economy")
	assert.Nil(t, data)
}

func TestBootstrapLoader_ReadErrorFallsBack(t *testing.T) {
	// 解封失败等读取错误与不存在同等对待
	inner := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, inner.Write(ctx, "economy", []byte("garbage")))

	sealed, err := NewCipherStore(inner, testSealKey())
	require.NoError(t, err)

	defaults := fstest.MapFS{
		"economy.json": {Data: []byte(`{"economy":{"gold":0}}`)},
	}
	loader := NewBootstrapLoader(sealed, defaults, zap.NewNop())

	data := loader.LoadOrDefault(ctx, "economy")
	assert.Equal(t, []byte(`{"economy":{"gold":0}}`), data)
}
