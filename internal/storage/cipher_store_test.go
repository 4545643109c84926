package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/idle-game/internal/errors"
)

func testSealKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestCipherStore_RoundTrip(t *testing.T) {
	inner := NewMemoryStore()
	store, err := NewCipherStore(inner, testSealKey())
	require.NoError(t, err)
	ctx := context.Background()

	plain := []byte(`{"economy":{"gold":9000}}`)
	require.NoError(t, store.Write(ctx, "economy", plain))

	// 底层存的是密文
	sealed, err := inner.Read(ctx, "economy")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("gold")))

	// 解封还原明文
	out, err := store.Read(ctx, "economy")
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestCipherStore_TamperRejected(t *testing.T) {
	inner := NewMemoryStore()
	store, err := NewCipherStore(inner, testSealKey())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "economy", []byte(`{"economy":{"gold":1}}`)))

	// 篡改密文最后一个字节
	sealed, err := inner.Read(ctx, "economy")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xFF
	require.NoError(t, inner.Write(ctx, "economy", sealed))

	_, err = store.Read(ctx, "economy")
	assert.True(t, apperrors.Is(err, apperrors.ErrSealOpen))
}

func TestCipherStore_DomainSwapRejected(t *testing.T) {
	inner := NewMemoryStore()
	store, err := NewCipherStore(inner, testSealKey())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "economy", []byte(`{"economy":{"gold":1}}`)))

	// 把economy的密文搬到boost域下，域名作为附加认证数据应导致解封失败
	sealed, err := inner.Read(ctx, "economy")
	require.NoError(t, err)
	require.NoError(t, inner.Write(ctx, "boost", sealed))

	_, err = store.Read(ctx, "boost")
	assert.True(t, apperrors.Is(err, apperrors.ErrSealOpen))
}

func TestCipherStore_ShortDataRejected(t *testing.T) {
	inner := NewMemoryStore()
	store, err := NewCipherStore(inner, testSealKey())
	require.NoError(t, err)
	ctx := context.Background()

	// 比nonce还短的数据
	require.NoError(t, inner.Write(ctx, "economy", []byte("short")))

	_, err = store.Read(ctx, "economy")
	assert.True(t, apperrors.Is(err, apperrors.ErrSealOpen))
}

func TestNewCipherStore_InvalidKey(t *testing.T) {
	_, err := NewCipherStore(NewMemoryStore(), []byte("too-short"))
	assert.True(t, apperrors.Is(err, apperrors.ErrSealInvalidKey))
}

func TestParseSealKey(t *testing.T) {
	// 合法的32字节十六进制密钥
	key, err := ParseSealKey(hex.EncodeToString(testSealKey()))
	require.NoError(t, err)
	assert.Equal(t, testSealKey(), key)

	// 非十六进制
	_, err = ParseSealKey("zz")
	assert.True(t, apperrors.Is(err, apperrors.ErrSealInvalidKey))

	// 长度不对
	_, err = ParseSealKey("abcd")
	assert.True(t, apperrors.Is(err, apperrors.ErrSealInvalidKey))
}

func TestCipherStore_NotFoundPassthrough(t *testing.T) {
	store, err := NewCipherStore(NewMemoryStore(), testSealKey())
	require.NoError(t, err)

	// 不存在的键原样透传ErrKeyNotFound
	_, err = store.Read(context.Background(), "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrKeyNotFound))
}
